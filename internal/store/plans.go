package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"optimetro.kochimetro.org/internal/models"
)

// SavePlan stores plan, replacing any plan with the same id.
func (s *Store) SavePlan(ctx context.Context, plan models.InductionPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan %s: %w", plan.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO induction_plans (id, generated_at, revenue, standby, ibl, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			generated_at = excluded.generated_at,
			revenue = excluded.revenue,
			standby = excluded.standby,
			ibl = excluded.ibl,
			payload = excluded.payload`,
		plan.ID,
		plan.GeneratedAt.UnixMilli(),
		plan.Count(models.ActionRevenue),
		plan.Count(models.ActionStandby),
		plan.Count(models.ActionIBL),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}
	return nil
}

// GetPlan returns the stored plan or ErrNotFound.
func (s *Store) GetPlan(ctx context.Context, id string) (models.InductionPlan, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM induction_plans WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InductionPlan{}, ErrNotFound
	}
	if err != nil {
		return models.InductionPlan{}, fmt.Errorf("failed to load plan %s: %w", id, err)
	}

	var plan models.InductionPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return models.InductionPlan{}, fmt.Errorf("failed to decode plan %s: %w", id, err)
	}
	return plan, nil
}

// ListPlans returns summaries of the most recent plans, newest first.
func (s *Store) ListPlans(ctx context.Context, limit int) ([]models.PlanSummary, error) {
	if limit <= 0 {
		limit = models.DefaultMaxCountForPlans
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generated_at, revenue, standby, ibl
		FROM induction_plans
		ORDER BY generated_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	summaries := []models.PlanSummary{}
	for rows.Next() {
		var (
			summary     models.PlanSummary
			generatedAt int64
		)
		if err := rows.Scan(&summary.ID, &generatedAt, &summary.Revenue, &summary.Standby, &summary.IBL); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		summary.GeneratedAt = time.UnixMilli(generatedAt).UTC()
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return summaries, nil
}

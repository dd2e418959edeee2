package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/peak"
)

var _ peak.Store = (*Store)(nil)

func (s *Store) SaveProfile(ctx context.Context, profile models.RiderProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode rider profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rider_profiles (user_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload`,
		profile.UserID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save rider profile: %w", err)
	}
	return nil
}

func (s *Store) SaveOffer(ctx context.Context, offer models.PeakShiftOffer) error {
	payload, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("failed to encode offer %s: %w", offer.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO peak_offers (id, user_id, status, expires_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			payload = excluded.payload`,
		offer.ID, offer.UserID, string(offer.Status), offer.ExpiresAt.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to save offer %s: %w", offer.ID, err)
	}
	return nil
}

// AppendReward records a ledger entry. Entries are never updated.
func (s *Store) AppendReward(ctx context.Context, reward models.RewardTransaction) error {
	payload, err := json.Marshal(reward)
	if err != nil {
		return fmt.Errorf("failed to encode reward %s: %w", reward.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reward_transactions (id, user_id, recorded_at, payload)
		VALUES ($1, $2, $3, $4)`,
		reward.ID, reward.UserID, reward.Timestamp.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to append reward %s: %w", reward.ID, err)
	}
	return nil
}

// LoadPeakState reads every profile, offer and ledger entry. Offers come back
// in expiry order and rewards in the order they were recorded.
func (s *Store) LoadPeakState(ctx context.Context) (peak.State, error) {
	var state peak.State

	if err := loadPayloads(ctx, s.db, `SELECT payload FROM rider_profiles ORDER BY user_id`, &state.Profiles); err != nil {
		return peak.State{}, fmt.Errorf("failed to load rider profiles: %w", err)
	}
	if err := loadPayloads(ctx, s.db, `SELECT payload FROM peak_offers ORDER BY expires_at, id`, &state.Offers); err != nil {
		return peak.State{}, fmt.Errorf("failed to load offers: %w", err)
	}
	if err := loadPayloads(ctx, s.db, `SELECT payload FROM reward_transactions ORDER BY recorded_at, id`, &state.Rewards); err != nil {
		return peak.State{}, fmt.Errorf("failed to load rewards: %w", err)
	}
	return state, nil
}

func loadPayloads[T any](ctx context.Context, db *sql.DB, query string, out *[]T) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return err
		}
		*out = append(*out, v)
	}
	return rows.Err()
}

// Package induction ranks the fleet for the next service day and assigns each
// trainset to revenue service, standby or the inspection bay line.
package induction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

// ErrEmptyFleet is returned when the snapshot carries no trains.
var ErrEmptyFleet = errors.New("fleet snapshot has no trains")

// Engine scores one fleet snapshot against one configuration.
type Engine struct {
	config   models.OptimizationConfig
	snapshot *models.FleetSnapshot
	clock    clock.Clock
	loc      *time.Location
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewEngine builds an engine. loc is the plant timezone used for cleaning
// hours and turnout times. A nil rng falls back to a time-seeded source.
func NewEngine(config models.OptimizationConfig, snapshot *models.FleetSnapshot, c clock.Clock, loc *time.Location, rng *rand.Rand) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if rng == nil {
		seed := uint64(c.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if snapshot == nil {
		snapshot = &models.FleetSnapshot{}
	}
	return &Engine{
		config:   config,
		snapshot: snapshot,
		clock:    c,
		loc:      loc,
		rng:      rng,
		logger:   logging.Component(slog.Default(), "induction"),
	}
}

// WithLogger replaces the engine logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logging.Component(logger, "induction")
	return e
}

// GeneratePlan scores the fleet, assigns every train and returns the plan.
func (e *Engine) GeneratePlan(ctx context.Context) (*models.InductionPlan, error) {
	if len(e.snapshot.Trains) == 0 {
		return nil, ErrEmptyFleet
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	scores := e.ComputeScores()
	solution := e.Solve(scores)

	seed := e.rng.Float64()
	if e.config.Seed != nil && *e.config.Seed != 0 {
		seed = *e.config.Seed
	}

	plan := &models.InductionPlan{
		ID:               fmt.Sprintf("plan_%d", now.UnixMilli()),
		ModelVersion:     models.ModelVersion,
		ObjectiveWeights: e.config.Weights,
		Seed:             seed,
		GeneratedAt:      now.UTC(),
		Decisions:        solution.Decisions,
		Conflicts:        solution.Conflicts,
		Metrics:          solution.Metrics,
	}

	logging.LogOperation(e.logger, "induction_plan_generated",
		slog.String("plan_id", plan.ID),
		slog.Int("revenue", plan.Count(models.ActionRevenue)),
		slog.Int("standby", plan.Count(models.ActionStandby)),
		slog.Int("ibl", plan.Count(models.ActionIBL)),
		slog.Float64("objective_value", solution.ObjectiveValue))

	return plan, nil
}

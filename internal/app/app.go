// Package app holds the dependencies shared by the HTTP handlers.
package app

import (
	"log/slog"
	"time"

	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/assistant"
	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/gtfs"
	"optimetro.kochimetro.org/internal/journey"
	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/optimizer"
	"optimetro.kochimetro.org/internal/peak"
	"optimetro.kochimetro.org/internal/store"
)

// Application holds the dependencies for our HTTP handlers, helpers and
// middleware. Store, Fleet and GtfsManager may be nil.
type Application struct {
	Config     appconf.Config
	GtfsConfig gtfs.Config
	Logger     *slog.Logger
	Clock      clock.Clock
	Location   *time.Location

	GtfsManager *gtfs.Manager
	Planner     *journey.Planner
	Store       *store.Store

	// Fleet is the configured depot snapshot used when a request brings none.
	Fleet           *models.FleetSnapshot
	InductionConfig models.OptimizationConfig

	PeakManager *peak.Manager
	Optimizer   *optimizer.Client
	Assistant   *assistant.Assistant
}

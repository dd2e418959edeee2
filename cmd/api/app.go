package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"optimetro.kochimetro.org/internal/app"
	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/assistant"
	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/gtfs"
	"optimetro.kochimetro.org/internal/induction"
	"optimetro.kochimetro.org/internal/journey"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/optimizer"
	"optimetro.kochimetro.org/internal/peak"
	"optimetro.kochimetro.org/internal/restapi"
	"optimetro.kochimetro.org/internal/store"
)

// BuildApplication creates and initializes the Application with all dependencies.
// This includes the GTFS manager, the plan store, the depot snapshot and the
// peak-shift manager. Anything started before a failure is shut down again.
func BuildApplication(ctx context.Context, cfg appconf.Config, gtfsCfg gtfs.Config) (*app.Application, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	loc := cfg.Location()

	// Select clock implementation based on environment
	appClock := createClock(cfg.Env, loc)
	if gtfsCfg.Clock == nil {
		gtfsCfg.Clock = appClock
	}

	coreApp := &app.Application{
		Config:     cfg,
		GtfsConfig: gtfsCfg,
		Logger:     logger,
		Clock:      appClock,
		Location:   loc,
	}

	ok := false
	defer func() {
		if !ok {
			shutdownApplication(coreApp)
		}
	}()

	gtfsManager, err := gtfs.InitGTFSManager(ctx, gtfsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GTFS manager: %w", err)
	}
	coreApp.GtfsManager = gtfsManager
	coreApp.Planner = journey.NewPlanner(gtfsManager)

	if cfg.DatabaseURL != "" {
		planStore, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		coreApp.Store = planStore
	}

	if cfg.FleetSnapshotPath != "" {
		fleet, err := models.LoadFleetSnapshot(cfg.FleetSnapshotPath)
		if err != nil {
			return nil, err
		}
		coreApp.Fleet = fleet
	}

	coreApp.InductionConfig = induction.DefaultConfig()
	if cfg.InductionConfigPath != "" {
		inductionCfg, err := induction.LoadConfig(cfg.InductionConfigPath)
		if err != nil {
			return nil, err
		}
		coreApp.InductionConfig = inductionCfg
	}

	peakOpts := []peak.Option{peak.WithLogger(logger)}
	if coreApp.Store != nil {
		peakOpts = append(peakOpts, peak.WithStore(coreApp.Store))
	}
	coreApp.PeakManager = peak.NewManager(appClock, loc, peakOpts...)
	if err := coreApp.PeakManager.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore peak-shift state: %w", err)
	}
	coreApp.PeakManager.Start()

	coreApp.Optimizer = optimizer.NewClient(cfg.InductionAPIURL, optimizer.DefaultTimeout)

	var responder assistant.Responder
	if cfg.GenAIKey != "" {
		gemini, err := assistant.NewGeminiResponder(ctx, cfg.GenAIKey, cfg.GenAIModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create assistant model: %w", err)
		}
		responder = gemini
	}
	coreApp.Assistant = assistant.New(coreApp.Optimizer, responder)

	ok = true
	return coreApp, nil
}

// createClock returns the appropriate Clock implementation based on environment.
// - Production/Development: RealClock (uses actual system time)
// - Test: EnvironmentClock (reads from FAKETIME env var or file, fallback to system time)
func createClock(env appconf.Environment, loc *time.Location) clock.Clock {
	switch env {
	case appconf.Test:
		return clock.NewEnvironmentClock("FAKETIME", "/etc/faketimerc", loc)
	default:
		return clock.RealClock{}
	}
}

// CreateServer creates and configures the HTTP server with routes and middleware.
// Applies security headers, and adds request logging.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)

	// Routes wrapped with security middleware
	secureHandler := api.SetupAPIRoutes()

	// Add request logging middleware (outermost)
	requestLogger := logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)
	requestLogMiddleware := restapi.NewRequestLoggingMiddleware(requestLogger)
	handler := requestLogMiddleware(secureHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 40 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}

	return srv, api
}

// Run manages the server lifecycle with graceful shutdown.
// Starts the server in a goroutine, waits for shutdown signals (SIGINT, SIGTERM) or context cancellation,
// and performs graceful shutdown with a 30-second timeout.
// Returns an error if the server fails to start or shutdown fails.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger
	logger.Info("starting server", "addr", srv.Addr)

	// Set up signal handling for graceful shutdown, merging with provided context
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Channel to capture server errors
	serverErrors := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	// Wait for either shutdown signal/context cancellation or server error
	select {
	case err := <-serverErrors:
		if api != nil {
			api.Shutdown()
		}
		shutdownApplication(coreApp)
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Shutdown API rate limiter first (stops background goroutines for request handling)
	if api != nil {
		api.Shutdown()
	}

	shutdownApplication(coreApp)

	logger.Info("server exited")
	return nil
}

// shutdownApplication stops background work, lowest-level dependencies last.
func shutdownApplication(coreApp *app.Application) {
	if coreApp.PeakManager != nil {
		coreApp.PeakManager.Shutdown()
	}
	if coreApp.Optimizer != nil {
		coreApp.Optimizer.Close()
	}
	if coreApp.GtfsManager != nil {
		coreApp.GtfsManager.Shutdown()
	}
	if coreApp.Store != nil {
		if err := coreApp.Store.Close(); err != nil {
			logging.LogError(coreApp.Logger, "failed to close store", err)
		}
	}
}

const redacted = "***REDACTED***"

// redactDSN hides the password of a URL-style DSN. File paths pass through.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

// dumpConfigJSON converts current configuration to JSON and prints it to stdout
func dumpConfigJSON(cfg appconf.Config, gtfsCfg gtfs.Config) {
	apiKeys := make([]string, len(cfg.ApiKeys))
	for i := range apiKeys {
		apiKeys[i] = redacted
	}
	genAIKey := ""
	if cfg.GenAIKey != "" {
		genAIKey = redacted
	}

	gtfsSource := gtfsCfg.Source
	if gtfsSource == "" {
		gtfsSource = "embedded"
	}

	jsonConfig := map[string]interface{}{
		"port":              cfg.Port,
		"env":               cfg.Env.String(),
		"api-keys":          apiKeys,
		"rate-limit":        cfg.RateLimit,
		"timezone":          cfg.Timezone,
		"database":          redactDSN(cfg.DatabaseURL),
		"induction-api-url": cfg.InductionAPIURL,
		"fleet-snapshot":    cfg.FleetSnapshotPath,
		"induction-config":  cfg.InductionConfigPath,
		"genai-api-key":     genAIKey,
		"genai-model":       cfg.GenAIModel,
		"gtfs-static-feed": map[string]interface{}{
			"source":           gtfsSource,
			"refresh-interval": gtfsCfg.RefreshInterval.String(),
			"watch":            gtfsCfg.WatchLocalFile,
		},
	}

	// Marshal to JSON with indentation
	output, err := json.MarshalIndent(jsonConfig, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling config to JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(output))
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/gtfs"
)

type serverFlags struct {
	port          int
	env           string
	apiKeys       string
	rateLimit     int
	gtfsSource    string
	gtfsRefresh   string
	databaseURL   string
	fleetPath     string
	inductionPath string
	dotenv        string
	dumpConfig    bool
}

func newRootCmd() *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the metro operations API",
		Long: `Serve induction planning, operations copilot, peak-shift incentives,
journey planning and the optimizer proxy over HTTP.

Configuration is read from .env and the environment first; flags override it.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gtfsCfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if flags.dumpConfig {
				dumpConfigJSON(cfg, gtfsCfg)
				return nil
			}
			return serve(cmd.Context(), cfg, gtfsCfg)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.port, "port", 4000, "API server port")
	f.StringVar(&flags.env, "env", "development", "Environment (development|test|production)")
	f.StringVar(&flags.apiKeys, "api-keys", "", "Comma separated list of API keys")
	f.IntVar(&flags.rateLimit, "rate-limit", 100, "Requests per second per API key")
	f.StringVar(&flags.gtfsSource, "gtfs", "", "GTFS feed path or URL (default: embedded Kochi Metro feed)")
	f.StringVar(&flags.gtfsRefresh, "gtfs-refresh", "", "Refresh interval for URL feeds, e.g. 6h")
	f.StringVar(&flags.databaseURL, "database", "", "sqlite file path or postgres:// DSN")
	f.StringVar(&flags.fleetPath, "fleet", "", "Depot snapshot YAML used when requests bring none")
	f.StringVar(&flags.inductionPath, "induction-config", "", "Induction optimization config YAML")
	f.StringVar(&flags.dotenv, "dotenv", ".env", "Path to an optional .env file")
	f.BoolVar(&flags.dumpConfig, "dump-config", false, "Print the effective configuration as JSON and exit")

	return cmd
}

// loadConfig reads the environment and applies any flags set explicitly.
func loadConfig(cmd *cobra.Command, flags serverFlags) (appconf.Config, gtfs.Config, error) {
	cfg, err := appconf.Load(flags.dotenv)
	if err != nil {
		return cfg, gtfs.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = flags.port
	}
	if changed("env") {
		env, err := appconf.EnvFromString(flags.env)
		if err != nil {
			return cfg, gtfs.Config{}, err
		}
		cfg.Env = env
	}
	if changed("api-keys") {
		cfg.ApiKeys = appconf.ParseAPIKeys(flags.apiKeys)
	}
	if changed("rate-limit") {
		cfg.RateLimit = flags.rateLimit
	}
	if changed("gtfs") {
		cfg.GTFSPath = flags.gtfsSource
	}
	if changed("database") {
		cfg.DatabaseURL = flags.databaseURL
	}
	if changed("fleet") {
		cfg.FleetSnapshotPath = flags.fleetPath
	}
	if changed("induction-config") {
		cfg.InductionConfigPath = flags.inductionPath
	}

	if err := cfg.Validate(); err != nil {
		return cfg, gtfs.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	gtfsCfg := gtfs.Config{
		Source:         cfg.GTFSPath,
		WatchLocalFile: cfg.GTFSPath != "" && !strings.Contains(cfg.GTFSPath, "://"),
		Env:            cfg.Env,
	}
	if flags.gtfsRefresh != "" {
		interval, err := time.ParseDuration(flags.gtfsRefresh)
		if err != nil {
			return cfg, gtfsCfg, fmt.Errorf("invalid --gtfs-refresh: %w", err)
		}
		gtfsCfg.RefreshInterval = interval
	}
	return cfg, gtfsCfg, nil
}

func serve(ctx context.Context, cfg appconf.Config, gtfsCfg gtfs.Config) error {
	coreApp, err := BuildApplication(ctx, cfg, gtfsCfg)
	if err != nil {
		return err
	}
	srv, api := CreateServer(coreApp, cfg)
	return Run(ctx, srv, coreApp, api)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/induction"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

type planOptions struct {
	fleetPath  string
	configPath string
	format     string
	timezone   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "induction",
		Short:        "Offline induction planning",
		SilenceUsage: true,
	}
	root.AddCommand(newPlanCmd(clock.RealClock{}))
	return root
}

func newPlanCmd(c clock.Clock) *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print an induction plan for a depot snapshot",
		Long: `Score every train in a depot snapshot and print tonight's induction plan.

The plan is written to stdout as JSON (plan and explanations) or as CSV with
one row per train.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), c, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.fleetPath, "fleet", "", "Depot snapshot YAML or JSON file")
	f.StringVar(&opts.configPath, "config", "", "Optimization config YAML (default weights when empty)")
	f.StringVar(&opts.format, "format", "json", "Output format (json|csv)")
	f.StringVar(&opts.timezone, "timezone", "Asia/Kolkata", "Plant timezone for turnout and cleaning slot hours")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log scoring progress to stderr")
	_ = cmd.MarkFlagRequired("fleet")

	return cmd
}

type planOutput struct {
	Plan         *models.InductionPlan  `json:"plan"`
	Explanations []models.AIExplanation `json:"explanations"`
}

func runPlan(ctx context.Context, stdout, stderr io.Writer, c clock.Clock, opts planOptions) error {
	if opts.format != "json" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q, want json or csv", opts.format)
	}

	snapshot, err := models.LoadFleetSnapshot(opts.fleetPath)
	if err != nil {
		return err
	}
	cfg := induction.DefaultConfig()
	if opts.configPath != "" {
		if cfg, err = induction.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(stderr, level)

	loc := appconf.Config{Timezone: opts.timezone}.Location()
	engine := induction.NewEngine(cfg, snapshot, c, loc, nil).WithLogger(logger)
	plan, err := engine.GeneratePlan(ctx)
	if err != nil {
		return err
	}

	if opts.format == "csv" {
		return induction.WriteCSV(stdout, plan)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(planOutput{Plan: plan, Explanations: engine.Explain(plan.Decisions)})
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

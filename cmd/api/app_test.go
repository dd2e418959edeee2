package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/gtfs"
	"optimetro.kochimetro.org/internal/models"
)

func TestBuildApplication(t *testing.T) {
	cfg := appconf.Config{
		Port:                4000,
		Env:                 appconf.Test,
		ApiKeys:             []string{"TEST"},
		RateLimit:           10,
		Timezone:            "Asia/Kolkata",
		DatabaseURL:         filepath.Join(t.TempDir(), "optimetro.db"),
		FleetSnapshotPath:   models.GetFixturePath(t, "fleet.yaml"),
		InductionConfigPath: models.GetFixturePath(t, "induction.yaml"),
	}

	coreApp, err := BuildApplication(context.Background(), cfg, gtfs.Config{Env: appconf.Test})
	require.NoError(t, err)
	t.Cleanup(func() { shutdownApplication(coreApp) })

	assert.Equal(t, "Asia/Kolkata", coreApp.Location.String())
	assert.IsType(t, &clock.EnvironmentClock{}, coreApp.Clock)
	require.NotNil(t, coreApp.Fleet)
	assert.Len(t, coreApp.Fleet.Trains, 6)
	assert.Equal(t, 3, coreApp.InductionConfig.Constraints.MaxRun)
	assert.NotNil(t, coreApp.Store)
	assert.NotNil(t, coreApp.Planner)
	assert.False(t, coreApp.Optimizer.Configured())
	assert.False(t, coreApp.Assistant.Connected())
}

func TestBuildApplicationFailsOnMissingFleet(t *testing.T) {
	cfg := appconf.Config{
		Env:               appconf.Test,
		Timezone:          "Asia/Kolkata",
		FleetSnapshotPath: filepath.Join(t.TempDir(), "missing.yaml"),
	}
	_, err := BuildApplication(context.Background(), cfg, gtfs.Config{Env: appconf.Test})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fleet snapshot")
}

func TestCreateClock(t *testing.T) {
	assert.IsType(t, clock.RealClock{}, createClock(appconf.Production, time.UTC))
	assert.IsType(t, clock.RealClock{}, createClock(appconf.Development, time.UTC))
	assert.IsType(t, &clock.EnvironmentClock{}, createClock(appconf.Test, time.UTC))
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "optimetro.db", redactDSN("optimetro.db"))
	assert.Equal(t, "postgres://metro:xxxxx@db:5432/optimetro", redactDSN("postgres://metro:secret@db:5432/optimetro"))
	assert.Equal(t, "postgres://db/optimetro", redactDSN("postgres://db/optimetro"))
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("API_KEYS", "env-key")
	t.Setenv("ENV", "production")

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--port=6000", "--gtfs=feed.zip", "--dotenv=" + filepath.Join(t.TempDir(), "none.env")}))

	var flags serverFlags
	flags.port = 6000
	flags.gtfsSource = "feed.zip"
	flags.dotenv = filepath.Join(t.TempDir(), "none.env")

	cfg, gtfsCfg, err := loadConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, appconf.Production, cfg.Env)
	assert.Equal(t, []string{"env-key"}, cfg.ApiKeys)
	assert.Equal(t, "feed.zip", gtfsCfg.Source)
	assert.True(t, gtfsCfg.WatchLocalFile)
	assert.Equal(t, appconf.Production, gtfsCfg.Env)
}

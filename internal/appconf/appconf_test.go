package appconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    Environment
		wantErr bool
	}{
		{"", Development, false},
		{"development", Development, false},
		{"TEST", Test, false},
		{"prod", Production, false},
		{"staging", Development, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := EnvFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "API_KEYS", "RATE_LIMIT", "INDUCTION_API_URL", "DATABASE_URL", "TIMEZONE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, Development, cfg.Env)
	assert.Equal(t, []string{"test"}, cfg.ApiKeys)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Empty(t, cfg.InductionAPIURL)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsDotenvAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("INDUCTION_API_URL=http://optimizer:8000\nAPI_KEYS=alpha, beta\n"), 0o644))

	t.Setenv("PORT", "8088")
	t.Setenv("ENV", "production")
	for _, key := range []string{"INDUCTION_API_URL", "API_KEYS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(dotenv)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Port)
	assert.Equal(t, Production, cfg.Env)
	assert.Equal(t, "http://optimizer:8000", cfg.InductionAPIURL)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.ApiKeys)
}

func TestLoadRejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("ENV", "staging")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{Port: 0, RateLimit: 0, Timezone: "Mars/Olympus"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 0 out of range")
	assert.Contains(t, err.Error(), "rate limit must be positive")
	assert.Contains(t, err.Error(), "at least one API key is required")
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestParseAPIKeys(t *testing.T) {
	assert.Equal(t, []string{}, ParseAPIKeys(""))
	assert.Equal(t, []string{"a", "b"}, ParseAPIKeys(" a , b ,"))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "Asia/Kolkata", Config{Timezone: "Asia/Kolkata"}.Location().String())
	assert.Equal(t, "UTC", Config{Timezone: "Nowhere/Special"}.Location().String())
	assert.Equal(t, "UTC", Config{}.Location().String())
}

package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFromString maps a name to an Environment. Unknown names are an error.
func EnvFromString(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "development", "dev":
		return Development, nil
	case "test":
		return Test, nil
	case "production", "prod":
		return Production, nil
	default:
		return Development, fmt.Errorf("unknown environment %q", value)
	}
}

// Decode lets envconfig populate an Environment from its name.
func (e *Environment) Decode(value string) error {
	env, err := EnvFromString(value)
	if err != nil {
		return err
	}
	*e = env
	return nil
}

type Config struct {
	Port      int         `envconfig:"PORT" default:"4000"`
	Env       Environment `envconfig:"ENV" default:"development"`
	ApiKeys   []string    `envconfig:"API_KEYS" default:"test"`
	RateLimit int         `envconfig:"RATE_LIMIT" default:"100"`

	// InductionAPIURL points at the external optimizer service. Proxy
	// endpoints answer 503 while it is empty.
	InductionAPIURL string `envconfig:"INDUCTION_API_URL"`

	// DatabaseURL is a sqlite file path or a postgres:// DSN.
	DatabaseURL string `envconfig:"DATABASE_URL" default:"optimetro.db"`

	GTFSPath            string `envconfig:"GTFS_PATH"`
	FleetSnapshotPath   string `envconfig:"FLEET_SNAPSHOT_PATH"`
	InductionConfigPath string `envconfig:"INDUCTION_CONFIG_PATH"`
	Timezone            string `envconfig:"TIMEZONE" default:"Asia/Kolkata"`

	GenAIKey   string `envconfig:"GENAI_API_KEY"`
	GenAIModel string `envconfig:"GENAI_MODEL" default:"gemini-2.0-flash"`
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration from environment: %w", err)
	}
	cfg.ApiKeys = ParseAPIKeys(strings.Join(cfg.ApiKeys, ","))
	return cfg, nil
}

// ParseAPIKeys splits a comma-separated string of API keys, trims whitespace
// and drops empty entries.
func ParseAPIKeys(apiKeys string) []string {
	if apiKeys == "" {
		return []string{}
	}
	keys := make([]string, 0, strings.Count(apiKeys, ",")+1)
	for _, key := range strings.Split(apiKeys, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Location returns the plant timezone used for peak windows, turnout times and
// cleaning slot hours. It falls back to UTC when the zone cannot be loaded.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports configuration values the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %d", c.RateLimit))
	}
	if len(c.ApiKeys) == 0 {
		errs = append(errs, errors.New("at least one API key is required"))
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
		}
	}
	return errors.Join(errs...)
}

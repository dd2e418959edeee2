package induction

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"optimetro.kochimetro.org/internal/models"
)

const timeOfDayLayout = "15:04"

// DefaultConfig returns the weights and limits used when no configuration
// file is supplied.
func DefaultConfig() models.OptimizationConfig {
	return models.OptimizationConfig{
		Weights: models.ObjectiveWeights{
			Feasibility:    0.4,
			Shunting:       0.1,
			MileageBalance: 0.2,
			Branding:       0.2,
			Cleaning:       0.1,
		},
		Constraints: models.OptimizationConstraints{
			MaxRun:         18,
			MaxStandby:     4,
			MaxMaintenance: 4,
			MinHeadway:     6,
			MaxShunting:    20,
		},
		TimeWindow: models.TimeWindow{
			Start: "05:00",
			End:   "23:00",
		},
	}
}

// LoadConfig reads a YAML configuration file. Fields absent from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (models.OptimizationConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read induction config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse induction config %s: %w", path, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, fmt.Errorf("invalid induction config %s: %w", path, err)
	}
	return cfg, nil
}

// ValidateConfig checks that weights and limits are usable.
func ValidateConfig(cfg models.OptimizationConfig) error {
	var errs []error

	w := cfg.Weights
	for _, weight := range []struct {
		name  string
		value float64
	}{
		{"feasibility", w.Feasibility},
		{"shunting", w.Shunting},
		{"mileageBalance", w.MileageBalance},
		{"branding", w.Branding},
		{"cleaning", w.Cleaning},
	} {
		if weight.value < 0 {
			errs = append(errs, fmt.Errorf("weight %s must not be negative, got %g", weight.name, weight.value))
		}
	}

	c := cfg.Constraints
	if c.MaxRun < 0 || c.MaxStandby < 0 || c.MaxMaintenance < 0 {
		errs = append(errs, errors.New("assignment limits must not be negative"))
	}

	start, startErr := time.Parse(timeOfDayLayout, cfg.TimeWindow.Start)
	if startErr != nil {
		errs = append(errs, fmt.Errorf("invalid time window start %q", cfg.TimeWindow.Start))
	}
	end, endErr := time.Parse(timeOfDayLayout, cfg.TimeWindow.End)
	if endErr != nil {
		errs = append(errs, fmt.Errorf("invalid time window end %q", cfg.TimeWindow.End))
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		errs = append(errs, fmt.Errorf("time window end %s must be after start %s", cfg.TimeWindow.End, cfg.TimeWindow.Start))
	}

	return errors.Join(errs...)
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/sweep/internal/models"
	"github.com/spachava753/sweep/internal/util"
)

// DefaultExperimentConfig returns an ExperimentConfig with default values.
func DefaultExperimentConfig() models.ExperimentConfig {
	return models.ExperimentConfig{
		RunsDir:         "runs",
		TrainingTimeSec: 600,
		SpacePath:       "space.toml",
		Metric: models.MetricConfig{
			Name:      "metric",
			Direction: models.Maximize,
		},
		Tuner: models.TunerConfig{
			Type:      "random",
			GridSteps: 4,
		},
		Runner: models.RunnerConfig{
			Type:       "command",
			MetricPath: "metric.txt",
		},
	}
}

// LoadExperimentConfig loads and parses an experiment.yaml file.
func LoadExperimentConfig(path string) (models.ExperimentConfig, error) {
	cfg := DefaultExperimentConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading experiment config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing experiment config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.RunsDir == "" {
		cfg.RunsDir = "runs"
	}
	if cfg.TrainingTimeSec == 0 {
		cfg.TrainingTimeSec = 600
	}
	if cfg.SpacePath == "" {
		cfg.SpacePath = "space.toml"
	}
	if cfg.Metric.Name == "" {
		cfg.Metric.Name = "metric"
	}
	if cfg.Metric.Direction == "" {
		cfg.Metric.Direction = models.Maximize
	}
	if cfg.Tuner.Type == "" {
		cfg.Tuner.Type = "random"
	}
	if cfg.Tuner.GridSteps == 0 {
		cfg.Tuner.GridSteps = 4
	}
	if cfg.Runner.Type == "" {
		cfg.Runner.Type = "command"
	}
	if cfg.Runner.MetricPath == "" {
		cfg.Runner.MetricPath = "metric.txt"
	}

	// Legacy memory string, converted to MB
	if cfg.Runner.Environment.MemoryMB == 0 && cfg.Runner.Environment.Memory != "" {
		mb, err := util.ParseMemory(cfg.Runner.Environment.Memory)
		if err != nil {
			return cfg, fmt.Errorf("parsing memory %q: %w", cfg.Runner.Environment.Memory, err)
		}
		cfg.Runner.Environment.MemoryMB = mb
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg models.ExperimentConfig) error {
	if cfg.TrainingTimeSec <= 0 {
		return fmt.Errorf("training_time_sec must be positive, got %d", cfg.TrainingTimeSec)
	}

	switch cfg.Metric.Direction {
	case models.Maximize, models.Minimize:
	default:
		return fmt.Errorf("metric direction must be %q or %q, got %q",
			models.Maximize, models.Minimize, cfg.Metric.Direction)
	}

	hasPath := cfg.Dataset.Path != nil && *cfg.Dataset.Path != ""
	hasRegistry := cfg.Dataset.Registry != nil
	if !hasPath && !hasRegistry {
		return fmt.Errorf("dataset: must specify either 'path' or 'registry'")
	}
	if hasPath && hasRegistry {
		return fmt.Errorf("dataset: cannot specify both 'path' and 'registry'")
	}

	if cfg.Runner.Command == "" {
		return fmt.Errorf("runner: command is required")
	}

	return nil
}

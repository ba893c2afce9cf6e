package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/sweep/internal/config"
	"github.com/spachava753/sweep/internal/dataset"
	"github.com/spachava753/sweep/internal/events"
	"github.com/spachava753/sweep/internal/models"
	"github.com/spachava753/sweep/internal/registry"
	"github.com/spachava753/sweep/internal/runner"
	"github.com/spachava753/sweep/internal/tuner"
)

// RunExperiment executes one full experiment run: load the search space,
// resolve the dataset, create the run directory, drive trials through the
// scheduler, and persist the report.
//
// When the run ends without any completed trial the report is still written
// and returned alongside models.ErrTimeout.
func RunExperiment(ctx context.Context, cfg models.ExperimentConfig, logger *slog.Logger) (*models.ExperimentReport, error) {
	space, err := config.LoadSearchSpace(os.DirFS(filepath.Dir(cfg.SpacePath)), filepath.Base(cfg.SpacePath))
	if err != nil {
		return nil, err
	}

	t, err := tuner.New(cfg.Tuner, space)
	if err != nil {
		return nil, err
	}

	ds, err := resolveDataset(ctx, cfg.Dataset)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset resolved", "name", ds.Name, "path", ds.Path)

	runID := uuid.NewString()
	runDir := filepath.Join(cfg.RunsDir, runID)
	if _, err := os.Stat(runDir); err == nil {
		return nil, fmt.Errorf("run directory already exists: %s", runDir)
	}
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	logger.Info("run directory created", "run_id", runID, "path", runDir)

	r, err := runner.New(ctx, cfg.Runner, *ds, runDir)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	bus.Subscribe(func(e events.Event) {
		logger.Debug("trial event", "type", e.Type, "trial_id", e.TrialID, "message", e.Message)
	})

	sched := New(cfg, t, r, bus, logger)

	startedAt := time.Now()
	best, runErr := sched.Run(ctx)
	endedAt := time.Now()

	if runErr != nil && !errors.Is(runErr, models.ErrTimeout) {
		return nil, runErr
	}

	cancelled := ctx.Err() != nil
	report := buildReport(cfg, runID, sched.History(), best, cancelled, startedAt, endedAt)
	if err := writeRunArtifacts(runDir, cfg, report, sched.History()); err != nil {
		return nil, err
	}
	logger.Info("report written", "path", filepath.Join(runDir, "report.json"))

	return report, runErr
}

// resolveDataset loads the dataset named in the experiment config, either
// from a local directory or through a dataset registry.
func resolveDataset(ctx context.Context, ref models.DatasetRef) (*models.Dataset, error) {
	loader := dataset.NewLoader()

	if ref.Path != nil && *ref.Path != "" {
		return loader.LoadFromPath(ctx, *ref.Path)
	}

	if ref.Registry == nil {
		return nil, fmt.Errorf("dataset: no path or registry configured")
	}
	if ref.Name == "" {
		return nil, fmt.Errorf("dataset: name is required with a registry")
	}

	var entries []registry.Entry
	var err error
	switch {
	case ref.Registry.Path != nil && *ref.Registry.Path != "":
		entries, err = registry.LoadFromPath(*ref.Registry.Path)
	case ref.Registry.URL != nil && *ref.Registry.URL != "":
		entries, err = registry.LoadFromURL(ctx, *ref.Registry.URL)
	default:
		return nil, fmt.Errorf("dataset registry: either path or url is required")
	}
	if err != nil {
		return nil, err
	}

	entry, err := registry.FindDataset(entries, ref.Name, ref.Version)
	if err != nil {
		return nil, err
	}

	resolver, err := registry.NewResolver()
	if err != nil {
		return nil, err
	}

	datasets, err := resolver.Resolve(ctx, []registry.Entry{*entry})
	if err != nil {
		return nil, err
	}

	return &datasets[0], nil
}

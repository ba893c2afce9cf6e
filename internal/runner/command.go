package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spachava753/sweep/internal/models"
)

// CommandRunner runs the training command as a local subprocess. Parameters
// and dataset handles are passed through SWEEP_* environment variables; the
// command reports its metric by writing a single float to the file named by
// SWEEP_METRIC_PATH.
type CommandRunner struct {
	cfg       models.RunnerConfig
	dataset   models.Dataset
	outputDir string
}

// NewCommandRunner creates a new local command runner.
func NewCommandRunner(cfg models.RunnerConfig, ds models.Dataset, outputDir string) *CommandRunner {
	return &CommandRunner{
		cfg:       cfg,
		dataset:   ds,
		outputDir: outputDir,
	}
}

// Run executes the training command for one trial.
func (r *CommandRunner) Run(ctx context.Context, settings *models.TrialSettings) (*models.TrialResult, error) {
	trialDir := filepath.Join(r.outputDir, fmt.Sprintf("trial-%04d", settings.ID))
	if err := os.MkdirAll(trialDir, 0755); err != nil {
		return nil, &models.TrialError{
			Type:    models.ErrInternalError,
			Message: fmt.Sprintf("creating trial directory: %s", err),
		}
	}

	metricPath := r.cfg.MetricPath
	if !filepath.IsAbs(metricPath) {
		metricPath = filepath.Join(trialDir, metricPath)
	}
	// Stale metric from an earlier attempt must not count for this trial
	os.Remove(metricPath)

	runCtx := ctx
	if r.cfg.TrialTimeoutSec > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.TrialTimeoutSec*float64(time.Second)))
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "bash", "-c", r.cfg.Command)
	cmd.Dir = trialDir

	cmd.Env = os.Environ()
	for k, v := range r.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	for k, v := range paramEnv(settings, r.dataset) {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env,
		"SWEEP_METRIC_PATH="+metricPath,
		"SWEEP_OUTPUT_DIR="+trialDir,
	)

	stdout, err := os.Create(filepath.Join(trialDir, "stdout.txt"))
	if err != nil {
		return nil, &models.TrialError{
			Type:    models.ErrInternalError,
			Message: fmt.Sprintf("creating stdout log: %s", err),
		}
	}
	defer stdout.Close()

	stderr, err := os.Create(filepath.Join(trialDir, "stderr.txt"))
	if err != nil {
		return nil, &models.TrialError{
			Type:    models.ErrInternalError,
			Message: fmt.Sprintf("creating stderr log: %s", err),
		}
	}
	defer stderr.Close()

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	end := time.Now()

	if runErr != nil {
		// External cancellation wins over every other interpretation:
		// the trial did not complete and the scheduler ends the run.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &models.TrialError{
				Type:    models.ErrTrainingTimeout,
				Message: fmt.Sprintf("trial %d exceeded %gs", settings.ID, r.cfg.TrialTimeoutSec),
			}
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, &models.TrialError{
				Type:    models.ErrTrainingFailed,
				Message: fmt.Sprintf("training command exited with code %d", exitErr.ExitCode()),
			}
		}
		return nil, &models.TrialError{
			Type:    models.ErrTrainingFailed,
			Message: runErr.Error(),
		}
	}

	data, err := os.ReadFile(metricPath)
	if err != nil {
		return nil, &models.TrialError{
			Type:    models.ErrMetricMissing,
			Message: fmt.Sprintf("metric file not written: %s", err),
		}
	}

	metric, err := parseMetric(data)
	if err != nil {
		return nil, err
	}

	return &models.TrialResult{
		Settings:      settings,
		Metric:        metric,
		RuntimeMillis: end.Sub(start).Milliseconds(),
		StartedAt:     start,
		EndedAt:       end,
	}, nil
}

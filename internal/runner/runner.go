package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spachava753/sweep/internal/models"
)

// TrialRunner executes a single trial to completion.
//
// Contract the scheduler relies on:
//   - the runner observes ctx during long-running work and fails with the
//     context's error when cancellation fires mid-trial;
//   - the runner never returns a TrialResult for a trial that did not run
//     to completion;
//   - failures unrelated to cancellation are returned as errors (typically
//     *models.TrialError) and abort the experiment.
type TrialRunner interface {
	Run(ctx context.Context, settings *models.TrialSettings) (*models.TrialResult, error)
}

// Func adapts an in-process objective function into a TrialRunner.
type Func func(ctx context.Context, settings *models.TrialSettings) (float64, error)

func (f Func) Run(ctx context.Context, settings *models.TrialSettings) (*models.TrialResult, error) {
	start := time.Now()
	metric, err := f(ctx, settings)
	if err != nil {
		return nil, err
	}
	end := time.Now()

	return &models.TrialResult{
		Settings:      settings,
		Metric:        metric,
		RuntimeMillis: end.Sub(start).Milliseconds(),
		StartedAt:     start,
		EndedAt:       end,
	}, nil
}

// New creates a trial runner from configuration. outputDir is the run
// directory trial outputs land under.
func New(ctx context.Context, cfg models.RunnerConfig, ds models.Dataset, outputDir string) (TrialRunner, error) {
	switch cfg.Type {
	case "command":
		return NewCommandRunner(cfg, ds, outputDir), nil
	case "docker", "modal":
		return NewContainerRunner(ctx, cfg, ds, outputDir)
	default:
		return nil, fmt.Errorf("unsupported runner type: %s", cfg.Type)
	}
}

// paramEnv renders trial parameters and dataset handles as SWEEP_* env vars
// for the training command.
func paramEnv(settings *models.TrialSettings, ds models.Dataset) map[string]string {
	env := map[string]string{
		"SWEEP_TRIAL_ID": strconv.Itoa(settings.ID),
	}
	if ds.Path != "" {
		env["SWEEP_DATASET_DIR"] = ds.Path
	}
	if ds.TrainPath != "" {
		env["SWEEP_TRAIN_PATH"] = ds.TrainPath
	}
	if ds.TestPath != "" {
		env["SWEEP_TEST_PATH"] = ds.TestPath
	}
	for name, value := range settings.Params {
		env["SWEEP_PARAM_"+envName(name)] = formatParam(value)
	}
	return env
}

func envName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func formatParam(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// parseMetric parses the single float a training command wrote to its
// metric file.
func parseMetric(data []byte) (float64, error) {
	s := strings.TrimSpace(string(data))
	metric, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &models.TrialError{
			Type:    models.ErrMetricInvalid,
			Message: fmt.Sprintf("invalid metric value: %q", s),
		}
	}
	return metric, nil
}

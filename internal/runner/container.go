package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spachava753/sweep/internal/environment"
	"github.com/spachava753/sweep/internal/environment/docker"
	"github.com/spachava753/sweep/internal/environment/modal"
	"github.com/spachava753/sweep/internal/models"
)

const containerDatasetDir = "/data"

// ContainerRunner runs each trial's training command inside a fresh
// container environment. The image is prepared once at construction; each
// trial gets its own environment with the dataset staged into it.
type ContainerRunner struct {
	provider  environment.Provider
	imageRef  string
	cfg       models.RunnerConfig
	dataset   models.Dataset
	outputDir string
}

// NewContainerRunner creates a container-backed runner and prepares the
// image (build from context_dir, or pull when image is set).
func NewContainerRunner(ctx context.Context, cfg models.RunnerConfig, ds models.Dataset, outputDir string) (*ContainerRunner, error) {
	var provider environment.Provider
	switch cfg.Type {
	case "docker":
		provider = docker.NewProvider()
	case "modal":
		p, err := modal.NewProvider(modal.ParseProviderConfig(cfg.Environment.ProviderConfig))
		if err != nil {
			return nil, fmt.Errorf("creating modal provider: %w", err)
		}
		provider = p
	default:
		return nil, fmt.Errorf("unsupported environment type: %s", cfg.Type)
	}

	r := &ContainerRunner{
		provider:  provider,
		cfg:       cfg,
		dataset:   ds,
		outputDir: outputDir,
	}

	switch {
	case cfg.Environment.ContextDir != "":
		tag := fmt.Sprintf("sweep-%s:%d", provider.Name(), time.Now().UnixNano())
		timeout := time.Duration(cfg.Environment.BuildTimeoutSec * float64(time.Second))
		imageRef, err := provider.BuildImage(ctx, environment.BuildImageOptions{
			ContextDir: cfg.Environment.ContextDir,
			Tag:        tag,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, &models.TrialError{
				Type:    models.ErrEnvironmentBuildFailed,
				Message: err.Error(),
			}
		}
		r.imageRef = imageRef
	case cfg.Environment.Image != "":
		if err := provider.PullImage(ctx, cfg.Environment.Image); err != nil {
			return nil, &models.TrialError{
				Type:    models.ErrEnvironmentBuildFailed,
				Message: err.Error(),
			}
		}
		r.imageRef = cfg.Environment.Image
	default:
		return nil, fmt.Errorf("environment: either context_dir or image is required")
	}

	return r, nil
}

// Run executes the training command for one trial in a fresh environment.
func (r *ContainerRunner) Run(ctx context.Context, settings *models.TrialSettings) (*models.TrialResult, error) {
	trialDir := filepath.Join(r.outputDir, fmt.Sprintf("trial-%04d", settings.ID))
	if err := os.MkdirAll(trialDir, 0755); err != nil {
		return nil, &models.TrialError{
			Type:    models.ErrInternalError,
			Message: fmt.Sprintf("creating trial directory: %s", err),
		}
	}

	env, err := r.provider.CreateEnvironment(ctx, environment.CreateEnvironmentOptions{
		ImageRef: r.imageRef,
		Name:     fmt.Sprintf("sweep-trial-%d-%d", settings.ID, time.Now().UnixNano()),
		CPUs:     r.cfg.Environment.CPUs,
		MemoryMB: r.cfg.Environment.MemoryMB,
		Env:      r.cfg.Env,
		Config:   r.cfg.Environment.ProviderConfig,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.TrialError{
			Type:    models.ErrEnvironmentStartFailed,
			Message: err.Error(),
		}
	}

	defer env.Destroy(context.Background())

	if err := env.CopyTo(ctx, r.dataset.Path, containerDatasetDir); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.TrialError{
			Type:    models.ErrDatasetStageFailed,
			Message: err.Error(),
		}
	}

	metricPath := r.cfg.MetricPath
	if !filepath.IsAbs(metricPath) {
		metricPath = "/tmp/" + metricPath
	}

	containerDS := models.Dataset{
		Name:      r.dataset.Name,
		Path:      containerDatasetDir,
		TrainPath: rebase(r.dataset.TrainPath, r.dataset.Path),
		TestPath:  rebase(r.dataset.TestPath, r.dataset.Path),
	}

	execEnv := paramEnv(settings, containerDS)
	execEnv["SWEEP_METRIC_PATH"] = metricPath
	for k, v := range r.cfg.Env {
		execEnv[k] = v
	}

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

	var timeout time.Duration
	if r.cfg.TrialTimeoutSec > 0 {
		timeout = time.Duration(r.cfg.TrialTimeoutSec * float64(time.Second))
	}

	start := time.Now()
	exitCode, execErr := env.Exec(ctx, r.cfg.Command, stdout, stderr, environment.ExecOptions{
		Env:     execEnv,
		Timeout: timeout,
	})
	end := time.Now()

	if execErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(execErr, context.DeadlineExceeded) {
			return nil, &models.TrialError{
				Type:    models.ErrTrainingTimeout,
				Message: fmt.Sprintf("trial %d exceeded %gs", settings.ID, r.cfg.TrialTimeoutSec),
			}
		}
		return nil, &models.TrialError{
			Type:    models.ErrTrainingFailed,
			Message: execErr.Error(),
		}
	}

	if exitCode != 0 {
		return nil, &models.TrialError{
			Type:    models.ErrTrainingFailed,
			Message: fmt.Sprintf("training command exited with code %d", exitCode),
		}
	}

	data, err := env.ReadFile(ctx, metricPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
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
		Cost:          env.Cost(),
		StartedAt:     start,
		EndedAt:       end,
	}, nil
}

// rebase maps a path under the local dataset directory to its location
// under the staged dataset directory in the container.
func rebase(path, root string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	return containerDatasetDir + "/" + filepath.ToSlash(rel)
}

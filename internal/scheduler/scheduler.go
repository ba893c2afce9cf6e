// Package scheduler runs the experiment loop: propose a trial, dispatch it
// to the runner, record the result, repeat until the training budget runs
// out, the run is cancelled, or the tuner has nothing left to propose.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/spachava753/sweep/internal/events"
	"github.com/spachava753/sweep/internal/models"
	"github.com/spachava753/sweep/internal/runner"
	"github.com/spachava753/sweep/internal/tuner"
)

// Scheduler drives trials sequentially against a single runner.
type Scheduler struct {
	cfg     models.ExperimentConfig
	tuner   tuner.Tuner
	runner  runner.TrialRunner
	bus     *events.Bus
	logger  *slog.Logger
	history []*models.TrialResult
	best    *bestTracker
}

// New creates a scheduler. The bus may be shared with subscribers that react
// to trial events, including by cancelling the run's context.
func New(cfg models.ExperimentConfig, t tuner.Tuner, r runner.TrialRunner, bus *events.Bus, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		tuner:  t,
		runner: r,
		bus:    bus,
		logger: logger,
		best:   newBestTracker(cfg.Metric.Direction),
	}
}

// Run executes trials until the training time budget elapses, ctx is
// cancelled, the trial cap is reached, or the tuner is exhausted. It returns
// the best completed trial. When the run ends with no completed trial at
// all, it returns models.ErrTimeout regardless of what ended the run.
//
// Errors from the runner that are not caused by cancellation or the budget
// deadline abort the run and are returned unchanged.
func (s *Scheduler) Run(ctx context.Context) (*models.TrialResult, error) {
	budget := time.Duration(s.cfg.TrainingTimeSec) * time.Second
	deadline := time.Now().Add(budget)
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	s.logger.Info("starting experiment run",
		"budget_sec", s.cfg.TrainingTimeSec,
		"direction", s.cfg.Metric.Direction,
		"tuner", s.cfg.Tuner.Type)

	for {
		if runCtx.Err() != nil {
			break
		}
		if s.cfg.MaxTrials > 0 && len(s.history) >= s.cfg.MaxTrials {
			s.logger.Info("trial cap reached", "max_trials", s.cfg.MaxTrials)
			break
		}

		settings, err := s.tuner.Propose(s.history)
		if errors.Is(err, tuner.ErrExhausted) {
			s.logger.Info("tuner exhausted", "trials", len(s.history))
			break
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("trial running",
			"trial_id", settings.ID,
			"params", settings.Params,
			"remaining", time.Until(deadline).Round(time.Millisecond))
		s.bus.Publish(events.Event{Type: events.TrialRunning, TrialID: settings.ID})

		// A subscriber may have cancelled during the event above
		if runCtx.Err() != nil {
			break
		}

		result, err := s.runner.Run(runCtx, settings)
		if err != nil {
			if runCtx.Err() != nil &&
				(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				s.logger.Info("trial interrupted", "trial_id", settings.ID)
				break
			}
			return nil, err
		}

		s.history = append(s.history, result)
		s.bus.Publish(events.Event{
			Type:    events.TrialCompleted,
			TrialID: result.Settings.ID,
			Message: strconv.FormatFloat(result.Metric, 'g', -1, 64),
		})

		// The best tracker only moves once the completed event is out, so
		// subscribers never see a best that includes an unannounced trial.
		if s.best.Observe(result) {
			s.logger.Info("new best trial",
				"trial_id", result.Settings.ID,
				s.cfg.Metric.Name, result.Metric)
		} else {
			s.logger.Info("trial completed",
				"trial_id", result.Settings.ID,
				s.cfg.Metric.Name, result.Metric)
		}
	}

	best := s.best.Best()
	if best == nil {
		return nil, models.ErrTimeout
	}
	return best, nil
}

// History returns the completed trials in completion order.
func (s *Scheduler) History() []*models.TrialResult {
	return s.history
}

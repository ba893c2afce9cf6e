package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spachava753/sweep/internal/events"
	"github.com/spachava753/sweep/internal/models"
	"github.com/spachava753/sweep/internal/runner"
	"github.com/spachava753/sweep/internal/tuner"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(budgetSec int) models.ExperimentConfig {
	return models.ExperimentConfig{
		TrainingTimeSec: budgetSec,
		Metric: models.MetricConfig{
			Name:      "accuracy",
			Direction: models.Maximize,
		},
	}
}

// seqTuner proposes trials with increasing IDs, then reports exhaustion
// after limit proposals (0 means unlimited).
type seqTuner struct {
	next  int
	limit int
}

func (t *seqTuner) Propose(history []*models.TrialResult) (*models.TrialSettings, error) {
	if t.limit > 0 && t.next >= t.limit {
		return nil, tuner.ErrExhausted
	}
	t.next++
	return &models.TrialSettings{
		ID:     t.next,
		Params: map[string]any{"x": t.next},
	}, nil
}

// metricRunner completes trials with the given metrics in order, then
// blocks until the context is cancelled.
func metricRunner(metrics ...float64) runner.TrialRunner {
	i := 0
	return runner.Func(func(ctx context.Context, settings *models.TrialSettings) (float64, error) {
		if i >= len(metrics) {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		m := metrics[i]
		i++
		return m, nil
	})
}

func TestRunReturnsBestOnTunerExhaustion(t *testing.T) {
	sched := New(testConfig(60), &seqTuner{limit: 3}, metricRunner(0.5, 0.9, 0.7), events.NewBus(), testLogger())

	best, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.Settings.ID != 2 || best.Metric != 0.9 {
		t.Errorf("expected trial 2 with metric 0.9, got trial %d with %g", best.Settings.ID, best.Metric)
	}
	if len(sched.History()) != 3 {
		t.Errorf("expected 3 completed trials, got %d", len(sched.History()))
	}
}

func TestRunMinimizeDirection(t *testing.T) {
	cfg := testConfig(60)
	cfg.Metric.Direction = models.Minimize
	sched := New(cfg, &seqTuner{limit: 3}, metricRunner(0.5, 0.2, 0.7), events.NewBus(), testLogger())

	best, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.Settings.ID != 2 || best.Metric != 0.2 {
		t.Errorf("expected trial 2 with metric 0.2, got trial %d with %g", best.Settings.ID, best.Metric)
	}
}

func TestRunTieKeepsEarlierTrial(t *testing.T) {
	sched := New(testConfig(60), &seqTuner{limit: 3}, metricRunner(0.8, 0.8, 0.8), events.NewBus(), testLogger())

	best, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.Settings.ID != 1 {
		t.Errorf("expected tie to keep trial 1, got trial %d", best.Settings.ID)
	}
}

func TestRunBudgetExpiryWithCompletedTrials(t *testing.T) {
	// Two instant completions, then the runner blocks until the 1s budget
	// deadline interrupts it.
	sched := New(testConfig(1), &seqTuner{}, metricRunner(0.6, 0.4), events.NewBus(), testLogger())

	start := time.Now()
	best, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.Metric != 0.6 {
		t.Errorf("expected best metric 0.6, got %g", best.Metric)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("run ended before the budget elapsed: %v", elapsed)
	}
}

func TestRunBudgetExpiryWithNoCompletedTrials(t *testing.T) {
	sched := New(testConfig(1), &seqTuner{}, metricRunner(), events.NewBus(), testLogger())

	_, err := sched.Run(context.Background())
	if !errors.Is(err, models.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if len(sched.History()) != 0 {
		t.Errorf("expected empty history, got %d trials", len(sched.History()))
	}
}

func TestRunCancelledAfterCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := metricRunner(0.7)
	sched := New(testConfig(60), &seqTuner{}, runner.Func(func(c context.Context, s *models.TrialSettings) (float64, error) {
		result, err := r.Run(c, s)
		if err != nil {
			return 0, err
		}
		cancel() // cancel the run once the first trial has its result
		return result.Metric, nil
	}), events.NewBus(), testLogger())

	best, err := sched.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.Metric != 0.7 {
		t.Errorf("expected best metric 0.7, got %g", best.Metric)
	}
}

func TestRunCancelledBeforeAnyCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	sched := New(testConfig(60), &seqTuner{}, metricRunner(), events.NewBus(), testLogger())

	_, err := sched.Run(ctx)
	if !errors.Is(err, models.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRunCancelledFromCompletedSubscriber(t *testing.T) {
	// A subscriber cancels the run while the completed event for trial 1 is
	// being delivered. The run must end with trial 1 as the best and no
	// second trial dispatched.
	ctx, cancel := context.WithCancel(context.Background())
	bus := events.NewBus()
	bus.Subscribe(func(e events.Event) {
		if e.Type == events.TrialCompleted {
			cancel()
		}
	})

	dispatched := 0
	r := runner.Func(func(c context.Context, s *models.TrialSettings) (float64, error) {
		dispatched++
		return 0.9, nil
	})

	sched := New(testConfig(60), &seqTuner{}, r, bus, testLogger())

	best, err := sched.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.Settings.ID != 1 {
		t.Errorf("expected trial 1 as best, got trial %d", best.Settings.ID)
	}
	if dispatched != 1 {
		t.Errorf("expected 1 dispatched trial, got %d", dispatched)
	}
}

func TestRunCancelledFromRunningSubscriber(t *testing.T) {
	// Cancelling during the running event means the trial must not execute.
	ctx, cancel := context.WithCancel(context.Background())
	bus := events.NewBus()
	bus.Subscribe(func(e events.Event) {
		if e.Type == events.TrialRunning {
			cancel()
		}
	})

	dispatched := 0
	r := runner.Func(func(c context.Context, s *models.TrialSettings) (float64, error) {
		dispatched++
		return 0.9, nil
	})

	sched := New(testConfig(60), &seqTuner{}, r, bus, testLogger())

	_, err := sched.Run(ctx)
	if !errors.Is(err, models.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if dispatched != 0 {
		t.Errorf("expected no dispatched trials, got %d", dispatched)
	}
}

func TestRunRunnerErrorPropagates(t *testing.T) {
	boom := &models.TrialError{Type: models.ErrTrainingFailed, Message: "exit 1"}
	r := runner.Func(func(c context.Context, s *models.TrialSettings) (float64, error) {
		return 0, boom
	})

	sched := New(testConfig(60), &seqTuner{}, r, events.NewBus(), testLogger())

	_, err := sched.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error to propagate unchanged, got %v", err)
	}
}

func TestRunExhaustionWithNoCompletionsIsTimeout(t *testing.T) {
	exhausted := tunerFunc(func(history []*models.TrialResult) (*models.TrialSettings, error) {
		return nil, tuner.ErrExhausted
	})
	sched := New(testConfig(60), exhausted, metricRunner(), events.NewBus(), testLogger())

	_, err := sched.Run(context.Background())
	if !errors.Is(err, models.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRunMaxTrialsCap(t *testing.T) {
	cfg := testConfig(60)
	cfg.MaxTrials = 2
	sched := New(cfg, &seqTuner{}, metricRunner(0.1, 0.2, 0.3), events.NewBus(), testLogger())

	best, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sched.History()) != 2 {
		t.Errorf("expected 2 trials, got %d", len(sched.History()))
	}
	if best.Metric != 0.2 {
		t.Errorf("expected best metric 0.2, got %g", best.Metric)
	}
}

func TestRunEventOrder(t *testing.T) {
	bus := events.NewBus()
	var seen []events.Event
	bus.Subscribe(func(e events.Event) {
		seen = append(seen, e)
	})

	sched := New(testConfig(60), &seqTuner{limit: 2}, metricRunner(0.1, 0.2), bus, testLogger())
	if _, err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []events.Type{events.TrialRunning, events.TrialCompleted, events.TrialRunning, events.TrialCompleted}
	if len(seen) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(seen))
	}
	for i, e := range seen {
		if e.Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], e.Type)
		}
	}
	if seen[0].TrialID != 1 || seen[2].TrialID != 2 {
		t.Errorf("unexpected trial IDs in events: %+v", seen)
	}
}

// tunerFunc adapts a function to the Tuner interface for tests.
type tunerFunc func(history []*models.TrialResult) (*models.TrialSettings, error)

func (f tunerFunc) Propose(history []*models.TrialResult) (*models.TrialSettings, error) {
	return f(history)
}

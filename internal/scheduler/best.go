package scheduler

import "github.com/spachava753/sweep/internal/models"

// bestTracker keeps the best completed trial seen so far. Only strict
// improvements replace the incumbent, so of two trials with equal metrics
// the earlier one stays the best.
type bestTracker struct {
	direction models.MetricDirection
	best      *models.TrialResult
}

func newBestTracker(direction models.MetricDirection) *bestTracker {
	return &bestTracker{direction: direction}
}

// Observe records a completed trial and reports whether it became the new
// best.
func (t *bestTracker) Observe(result *models.TrialResult) bool {
	if t.best == nil || t.direction.Better(result.Metric, t.best.Metric) {
		t.best = result
		return true
	}
	return false
}

// Best returns the best completed trial, or nil when none completed.
func (t *bestTracker) Best() *models.TrialResult {
	return t.best
}

// Package tuner holds the search strategies that propose trial
// configurations. Strategy internals are opaque to the scheduler; the only
// contract is the Tuner interface.
package tuner

import (
	"errors"
	"fmt"

	"github.com/spachava753/sweep/internal/models"
)

// ErrExhausted is returned by Propose when the strategy has nothing left to
// propose. The scheduler treats it as a clean end of the run.
var ErrExhausted = errors.New("search space exhausted")

// Tuner proposes the next trial's configuration given the history of
// completed trials. Implementations must assign strictly increasing trial
// IDs across calls.
type Tuner interface {
	Propose(history []*models.TrialResult) (*models.TrialSettings, error)
}

// New creates a tuner from configuration.
func New(cfg models.TunerConfig, space models.SearchSpace) (Tuner, error) {
	switch cfg.Type {
	case "random":
		return NewRandomTuner(space, cfg.Seed), nil
	case "grid":
		return NewGridTuner(space, cfg.GridSteps)
	default:
		return nil, fmt.Errorf("unsupported tuner type: %s", cfg.Type)
	}
}

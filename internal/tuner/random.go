package tuner

import (
	"math"
	"math/rand"
	"time"

	"github.com/spachava753/sweep/internal/models"
)

// RandomTuner samples each parameter independently and uniformly from its
// declared range. Float parameters marked log-scale are sampled uniformly in
// log space.
type RandomTuner struct {
	space  models.SearchSpace
	rng    *rand.Rand
	nextID int
}

// NewRandomTuner creates a random-search tuner. A zero seed picks a
// time-based seed; any other value makes the proposal sequence reproducible.
func NewRandomTuner(space models.SearchSpace, seed int64) *RandomTuner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomTuner{
		space:  space,
		rng:    rand.New(rand.NewSource(seed)),
		nextID: 1,
	}
}

// Propose returns the next randomly sampled trial settings.
func (t *RandomTuner) Propose(_ []*models.TrialResult) (*models.TrialSettings, error) {
	params := make(map[string]any, len(t.space.Params))
	for _, p := range t.space.Params {
		params[p.Name] = t.sample(p)
	}

	settings := &models.TrialSettings{
		ID:     t.nextID,
		Params: params,
	}
	t.nextID++

	return settings, nil
}

func (t *RandomTuner) sample(p models.Param) any {
	switch p.Type {
	case models.ParamFloat:
		if p.Log {
			lo, hi := math.Log(p.Min), math.Log(p.Max)
			return math.Exp(lo + t.rng.Float64()*(hi-lo))
		}
		return p.Min + t.rng.Float64()*(p.Max-p.Min)
	case models.ParamInt:
		lo, hi := int(p.Min), int(p.Max)
		return lo + t.rng.Intn(hi-lo+1)
	case models.ParamChoice:
		return p.Values[t.rng.Intn(len(p.Values))]
	}
	return nil
}

package tuner

import (
	"fmt"
	"math"

	"github.com/spachava753/sweep/internal/models"
)

// GridTuner enumerates the Cartesian product of discretized parameter
// ranges. Float ranges are discretized into `steps` evenly spaced values
// (log-spaced when the parameter is log scale); int ranges enumerate every
// integer up to `steps` values; choice parameters enumerate their values.
// Propose returns ErrExhausted once the grid is fully enumerated.
type GridTuner struct {
	names   []string
	values  [][]any
	indices []int
	done    bool
	nextID  int
}

// NewGridTuner creates a grid-search tuner with the given number of steps
// per continuous dimension.
func NewGridTuner(space models.SearchSpace, steps int) (*GridTuner, error) {
	if steps < 2 {
		return nil, fmt.Errorf("grid search requires at least 2 steps per dimension, got %d", steps)
	}

	t := &GridTuner{nextID: 1}
	for _, p := range space.Params {
		t.names = append(t.names, p.Name)
		t.values = append(t.values, gridValues(p, steps))
	}
	t.indices = make([]int, len(t.values))

	return t, nil
}

func gridValues(p models.Param, steps int) []any {
	switch p.Type {
	case models.ParamFloat:
		vals := make([]any, steps)
		if p.Log {
			lo, hi := math.Log(p.Min), math.Log(p.Max)
			for i := range steps {
				vals[i] = math.Exp(lo + (hi-lo)*float64(i)/float64(steps-1))
			}
		} else {
			for i := range steps {
				vals[i] = p.Min + (p.Max-p.Min)*float64(i)/float64(steps-1)
			}
		}
		return vals
	case models.ParamInt:
		lo, hi := int(p.Min), int(p.Max)
		span := hi - lo + 1
		if span <= steps {
			vals := make([]any, 0, span)
			for v := lo; v <= hi; v++ {
				vals = append(vals, v)
			}
			return vals
		}
		vals := make([]any, steps)
		for i := range steps {
			vals[i] = lo + int(math.Round(float64(hi-lo)*float64(i)/float64(steps-1)))
		}
		return vals
	case models.ParamChoice:
		vals := make([]any, len(p.Values))
		for i, v := range p.Values {
			vals[i] = v
		}
		return vals
	}
	return nil
}

// Propose returns the next grid point, or ErrExhausted when the grid has
// been fully enumerated.
func (t *GridTuner) Propose(_ []*models.TrialResult) (*models.TrialSettings, error) {
	if t.done {
		return nil, ErrExhausted
	}

	params := make(map[string]any, len(t.names))
	for i, name := range t.names {
		params[name] = t.values[i][t.indices[i]]
	}

	settings := &models.TrialSettings{
		ID:     t.nextID,
		Params: params,
	}
	t.nextID++

	// Advance the odometer
	for i := len(t.indices) - 1; i >= 0; i-- {
		t.indices[i]++
		if t.indices[i] < len(t.values[i]) {
			return settings, nil
		}
		t.indices[i] = 0
	}
	t.done = true

	return settings, nil
}

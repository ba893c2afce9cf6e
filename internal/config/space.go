package config

import (
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"

	"github.com/spachava753/sweep/internal/models"
)

// LoadSearchSpace loads and parses a space.toml file from the given filesystem.
func LoadSearchSpace(fsys fs.FS, path string) (models.SearchSpace, error) {
	var space models.SearchSpace

	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return space, fmt.Errorf("reading search space: %w", err)
	}

	if _, err := toml.Decode(string(data), &space); err != nil {
		return space, fmt.Errorf("parsing search space: %w", err)
	}

	if err := validateSpace(space); err != nil {
		return space, err
	}

	return space, nil
}

func validateSpace(space models.SearchSpace) error {
	if len(space.Params) == 0 {
		return fmt.Errorf("search space has no parameters")
	}

	seen := make(map[string]bool, len(space.Params))
	for i, p := range space.Params {
		if p.Name == "" {
			return fmt.Errorf("param[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("param %q: duplicate name", p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case models.ParamFloat, models.ParamInt:
			if p.Max <= p.Min {
				return fmt.Errorf("param %q: max must be greater than min", p.Name)
			}
			if p.Log && p.Min <= 0 {
				return fmt.Errorf("param %q: log scale requires min > 0", p.Name)
			}
		case models.ParamChoice:
			if len(p.Values) == 0 {
				return fmt.Errorf("param %q: choice requires at least one value", p.Name)
			}
		default:
			return fmt.Errorf("param %q: unknown type %q", p.Name, p.Type)
		}
	}

	return nil
}

package models

// ParamType is the kind of a search-space dimension.
type ParamType string

const (
	ParamFloat  ParamType = "float"
	ParamInt    ParamType = "int"
	ParamChoice ParamType = "choice"
)

// Param is one dimension of the search space, parsed from space.toml.
type Param struct {
	Name   string    `toml:"name"`
	Type   ParamType `toml:"type"`
	Min    float64   `toml:"min"`
	Max    float64   `toml:"max"`
	Log    bool      `toml:"log"` // sample on a log scale (float only)
	Values []string  `toml:"values"`
}

// SearchSpace is the set of dimensions tuners propose over.
type SearchSpace struct {
	Params []Param `toml:"param"`
}

package models

// MetricDirection says whether a higher or lower metric is better.
type MetricDirection string

const (
	Maximize MetricDirection = "maximize"
	Minimize MetricDirection = "minimize"
)

// Better reports whether metric a is strictly better than metric b. Ties are
// not improvements, so the earlier of two equal trials stays the best.
func (d MetricDirection) Better(a, b float64) bool {
	if d == Minimize {
		return a < b
	}
	return a > b
}

// ExperimentConfig represents the parsed experiment.yaml configuration.
type ExperimentConfig struct {
	Name            *string      `yaml:"name,omitempty" json:"name,omitempty"`
	RunsDir         string       `yaml:"runs_dir" json:"runs_dir"`
	TrainingTimeSec int          `yaml:"training_time_sec" json:"training_time_sec"`
	MaxTrials       int          `yaml:"max_trials,omitempty" json:"max_trials,omitempty"`
	LogLevel        string       `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	LogFormat       string       `yaml:"log_format,omitempty" json:"log_format,omitempty"`
	SpacePath       string       `yaml:"space_path" json:"space_path"`
	Metric          MetricConfig `yaml:"metric" json:"metric"`
	Tuner           TunerConfig  `yaml:"tuner,omitempty" json:"tuner,omitempty"`
	Runner          RunnerConfig `yaml:"runner" json:"runner"`
	Dataset         DatasetRef   `yaml:"dataset" json:"dataset"`
}

// MetricConfig names the metric a trial reports and which direction wins.
type MetricConfig struct {
	Name      string          `yaml:"name" json:"name"`
	Direction MetricDirection `yaml:"direction" json:"direction"`
}

// TunerConfig selects and parameterizes the search strategy.
type TunerConfig struct {
	Type      string `yaml:"type" json:"type"`
	Seed      int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
	GridSteps int    `yaml:"grid_steps,omitempty" json:"grid_steps,omitempty"`
}

// RunnerConfig selects and parameterizes the trial runner.
type RunnerConfig struct {
	Type            string            `yaml:"type" json:"type"`
	Command         string            `yaml:"command" json:"command"`
	MetricPath      string            `yaml:"metric_path,omitempty" json:"metric_path,omitempty"`
	TrialTimeoutSec float64           `yaml:"trial_timeout_sec,omitempty" json:"trial_timeout_sec,omitempty"`
	Env             map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Environment     EnvironmentConfig `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// EnvironmentConfig configures the container environment for container-backed
// runners. Either ContextDir (build from a Dockerfile) or Image (pull a
// pre-built reference) is set.
type EnvironmentConfig struct {
	ContextDir      string         `yaml:"context_dir,omitempty" json:"context_dir,omitempty"`
	Image           string         `yaml:"image,omitempty" json:"image,omitempty"`
	BuildTimeoutSec float64        `yaml:"build_timeout_sec,omitempty" json:"build_timeout_sec,omitempty"`
	CPUs            int            `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	MemoryMB        int            `yaml:"memory_mb,omitempty" json:"memory_mb,omitempty"`
	Memory          string         `yaml:"memory,omitempty" json:"memory,omitempty"` // Deprecated: use MemoryMB
	ProviderConfig  map[string]any `yaml:"provider_config,omitempty" json:"provider_config,omitempty"`
}

// DatasetRef specifies how to load the experiment's dataset.
type DatasetRef struct {
	Path     *string      `yaml:"path,omitempty" json:"path,omitempty"`
	Registry *RegistryRef `yaml:"registry,omitempty" json:"registry,omitempty"`
	Name     string       `yaml:"name,omitempty" json:"name,omitempty"`
	Version  string       `yaml:"version,omitempty" json:"version,omitempty"`
}

type RegistryRef struct {
	Path *string `yaml:"path,omitempty" json:"path,omitempty"`
	URL  *string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Dataset is a loaded dataset directory, passed through to runners opaquely.
type Dataset struct {
	Name      string
	Path      string
	TrainPath string
	TestPath  string // empty when the dataset has no held-out split
}

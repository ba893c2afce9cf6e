package models

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned by the scheduler when the run ends, whether by
// budget expiry or by cancellation, with zero completed trials. Cancellation
// with nothing to show is not a distinct error kind.
var ErrTimeout = errors.New("training budget exhausted before any trial completed")

// ErrorType identifies the category of trial failure that occurred.
type ErrorType string

const (
	// Environment phase
	ErrEnvironmentBuildFailed ErrorType = "environment_build_failed"
	ErrEnvironmentStartFailed ErrorType = "environment_start_failed"
	ErrDatasetStageFailed     ErrorType = "dataset_stage_failed"

	// Training phase
	ErrTrainingFailed  ErrorType = "training_failed"
	ErrTrainingTimeout ErrorType = "training_timeout"

	// Metric collection
	ErrMetricMissing ErrorType = "metric_missing"
	ErrMetricInvalid ErrorType = "metric_invalid"

	// Catch-all
	ErrInternalError ErrorType = "internal_error"
)

// TrialError describes a trial failure unrelated to cancellation. The
// scheduler does not mask these: a TrialError surfacing out of a runner
// aborts the experiment.
type TrialError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

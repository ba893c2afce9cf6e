package models

import "time"

// TrialSettings identifies one proposed configuration to evaluate.
// Settings are immutable once created. Tuners assign IDs and must produce a
// strictly increasing ID on each proposal within a run.
type TrialSettings struct {
	ID     int            `json:"id"`
	Params map[string]any `json:"params"`
}

// TrialResult contains the outcome of a trial that ran to completion.
// Runners never produce a result for a trial that was interrupted.
type TrialResult struct {
	Settings      *TrialSettings `json:"settings"`
	Metric        float64        `json:"metric"`
	RuntimeMillis int64          `json:"runtime_millis"`
	Cost          float64        `json:"cost"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       time.Time      `json:"ended_at"`
}

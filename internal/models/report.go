package models

import "time"

// ExperimentReport contains aggregate results for one run.
type ExperimentReport struct {
	RunID            string         `json:"run_id"`
	ExperimentName   string         `json:"experiment_name"`
	MetricName       string         `json:"metric_name"`
	Cancelled        bool           `json:"cancelled"`
	TotalTrials      int            `json:"total_trials"`
	CompletedTrials  int            `json:"completed_trials"`
	BestTrial        *TrialSummary  `json:"best_trial"`
	MeanMetric       float64        `json:"mean_metric"`
	TotalCost        float64        `json:"total_cost"`
	TotalDurationSec float64        `json:"total_duration_sec"`
	RuntimeP50Millis int64          `json:"runtime_p50_millis"`
	RuntimeP95Millis int64          `json:"runtime_p95_millis"`
	RuntimeMaxMillis int64          `json:"runtime_max_millis"`
	StartedAt        time.Time      `json:"started_at"`
	EndedAt          time.Time      `json:"ended_at"`
	Trials           []TrialSummary `json:"trials"`
}

type TrialSummary struct {
	TrialID       int            `json:"trial_id"`
	Metric        float64        `json:"metric"`
	RuntimeMillis int64          `json:"runtime_millis"`
	Params        map[string]any `json:"params"`
}

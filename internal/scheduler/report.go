package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"github.com/spachava753/sweep/internal/models"
)

// buildReport aggregates the completed trials of one run into a report.
func buildReport(cfg models.ExperimentConfig, runID string, history []*models.TrialResult, best *models.TrialResult, cancelled bool, startedAt, endedAt time.Time) *models.ExperimentReport {
	report := &models.ExperimentReport{
		RunID:            runID,
		MetricName:       cfg.Metric.Name,
		Cancelled:        cancelled,
		TotalTrials:      len(history),
		CompletedTrials:  len(history),
		TotalDurationSec: endedAt.Sub(startedAt).Seconds(),
		StartedAt:        startedAt,
		EndedAt:          endedAt,
	}
	if cfg.Name != nil {
		report.ExperimentName = *cfg.Name
	}

	if len(history) == 0 {
		return report
	}

	// Runtime percentiles over completed trials. An hour per trial is far
	// above any budget we accept, so the histogram range is safe.
	hist := hdrhistogram.New(1, 3_600_000, 3)

	var metricSum float64
	for _, result := range history {
		metricSum += result.Metric
		report.TotalCost += result.Cost
		hist.RecordValue(result.RuntimeMillis)

		report.Trials = append(report.Trials, models.TrialSummary{
			TrialID:       result.Settings.ID,
			Metric:        result.Metric,
			RuntimeMillis: result.RuntimeMillis,
			Params:        result.Settings.Params,
		})
	}

	report.MeanMetric = metricSum / float64(len(history))
	report.RuntimeP50Millis = hist.ValueAtQuantile(50)
	report.RuntimeP95Millis = hist.ValueAtQuantile(95)
	report.RuntimeMaxMillis = hist.Max()

	if best != nil {
		report.BestTrial = &models.TrialSummary{
			TrialID:       best.Settings.ID,
			Metric:        best.Metric,
			RuntimeMillis: best.RuntimeMillis,
			Params:        best.Settings.Params,
		}
	}

	return report
}

// writeRunArtifacts persists the resolved config, the report, and one
// result.json per completed trial under the run directory.
func writeRunArtifacts(runDir string, cfg models.ExperimentConfig, report *models.ExperimentReport, history []*models.TrialResult) error {
	if err := writeJSON(filepath.Join(runDir, "config.json"), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	for _, result := range history {
		trialDir := filepath.Join(runDir, fmt.Sprintf("trial-%04d", result.Settings.ID))
		if err := os.MkdirAll(trialDir, 0755); err != nil {
			return fmt.Errorf("creating trial directory: %w", err)
		}
		if err := writeJSON(filepath.Join(trialDir, "result.json"), result); err != nil {
			return fmt.Errorf("writing trial %d result: %w", result.Settings.ID, err)
		}
	}

	if err := writeJSON(filepath.Join(runDir, "report.json"), report); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

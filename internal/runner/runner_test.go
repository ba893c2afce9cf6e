package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/spachava753/sweep/internal/models"
)

func TestFuncAdapter(t *testing.T) {
	r := Func(func(ctx context.Context, settings *models.TrialSettings) (float64, error) {
		return 0.5, nil
	})

	result, err := r.Run(context.Background(), &models.TrialSettings{ID: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Metric != 0.5 {
		t.Errorf("expected metric 0.5, got %g", result.Metric)
	}
	if result.Settings.ID != 7 {
		t.Errorf("expected trial ID 7, got %d", result.Settings.ID)
	}
}

func TestFuncAdapterError(t *testing.T) {
	boom := errors.New("objective failed")
	r := Func(func(ctx context.Context, settings *models.TrialSettings) (float64, error) {
		return 0, boom
	})

	_, err := r.Run(context.Background(), &models.TrialSettings{ID: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected objective error, got %v", err)
	}
}

func TestEnvName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"learning_rate", "LEARNING_RATE"},
		{"max-depth", "MAX_DEPTH"},
		{"n.estimators", "N_ESTIMATORS"},
		{"C", "C"},
	}
	for _, tt := range tests {
		if got := envName(tt.in); got != tt.want {
			t.Errorf("envName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{0.001, "0.001"},
		{6, "6"},
		{"gbtree", "gbtree"},
		{1e-05, "1e-05"},
	}
	for _, tt := range tests {
		if got := formatParam(tt.in); got != tt.want {
			t.Errorf("formatParam(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMetric(t *testing.T) {
	metric, err := parseMetric([]byte("  0.875\n"))
	if err != nil {
		t.Fatalf("parseMetric: %v", err)
	}
	if metric != 0.875 {
		t.Errorf("expected 0.875, got %g", metric)
	}

	_, err = parseMetric([]byte("nope"))
	var trialErr *models.TrialError
	if !errors.As(err, &trialErr) {
		t.Fatalf("expected TrialError, got %v", err)
	}
	if trialErr.Type != models.ErrMetricInvalid {
		t.Errorf("expected ErrMetricInvalid, got %s", trialErr.Type)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := New(context.Background(), models.RunnerConfig{Type: "bogus"}, models.Dataset{}, t.TempDir())
	if err == nil {
		t.Fatal("expected error for unsupported runner type")
	}
}

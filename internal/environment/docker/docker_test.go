package docker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spachava753/sweep/internal/environment"
)

const testImage = "debian:bookworm-slim"

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker CLI not available")
	}
}

func TestContainerLifecycle(t *testing.T) {
	requireDocker(t)

	ctx := context.Background()
	p := NewProvider()

	if err := p.PullImage(ctx, testImage); err != nil {
		t.Fatalf("PullImage: %v", err)
	}

	env, err := p.CreateEnvironment(ctx, environment.CreateEnvironmentOptions{
		ImageRef: testImage,
	})
	if err != nil {
		t.Fatalf("CreateEnvironment: %v", err)
	}
	defer env.Destroy(context.Background())

	// Stage a file and read it back through exec
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "train.csv"), []byte("x,y\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := env.CopyTo(ctx, srcDir, "/data"); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}

	var stdout, stderr bytes.Buffer
	exitCode, err := env.Exec(ctx, `wc -l < /data/train.csv; echo 0.5 > /tmp/metric.txt`, &stdout, &stderr, environment.ExecOptions{
		Env: map[string]string{"SWEEP_TRIAL_ID": "1"},
	})
	if err != nil {
		t.Fatalf("Exec: %v (stderr: %s)", err, stderr.String())
	}
	if exitCode != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", exitCode, stderr.String())
	}

	data, err := env.ReadFile(ctx, "/tmp/metric.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.TrimSpace(string(data)) != "0.5" {
		t.Errorf("expected metric 0.5, got %q", string(data))
	}

	if env.Cost() != 0 {
		t.Errorf("local docker cost should be 0, got %g", env.Cost())
	}
}

func TestExecNonZeroExit(t *testing.T) {
	requireDocker(t)

	ctx := context.Background()
	p := NewProvider()

	env, err := p.CreateEnvironment(ctx, environment.CreateEnvironmentOptions{ImageRef: testImage})
	if err != nil {
		t.Fatalf("CreateEnvironment: %v", err)
	}
	defer env.Destroy(context.Background())

	exitCode, err := env.Exec(ctx, "exit 3", nil, nil, environment.ExecOptions{})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if exitCode != 3 {
		t.Errorf("expected exit code 3, got %d", exitCode)
	}
}

func TestExecCancellation(t *testing.T) {
	requireDocker(t)

	p := NewProvider()
	env, err := p.CreateEnvironment(context.Background(), environment.CreateEnvironmentOptions{ImageRef: testImage})
	if err != nil {
		t.Fatalf("CreateEnvironment: %v", err)
	}
	defer env.Destroy(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	_, err = env.Exec(ctx, "sleep 60", nil, nil, environment.ExecOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParentDir(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/data/train.csv", "/data"},
		{"/metric.txt", "/"},
		{"metric.txt", "/"},
	}
	for _, tt := range tests {
		if got := parentDir(tt.in); got != tt.want {
			t.Errorf("parentDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

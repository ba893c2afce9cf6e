package registry

import (
	"strings"
	"testing"
)

func TestCloneDirName(t *testing.T) {
	r := &Resolver{baseDir: "/tmp/test"}

	withCommit := r.cloneDirName(cloneKey{
		GitURL:      "https://github.com/example/datasets.git",
		GitCommitID: "abc123def456789",
	})
	if !strings.Contains(withCommit, "abc123def456") {
		t.Errorf("expected truncated commit in %q", withCommit)
	}
	if !strings.Contains(withCommit, "datasets") {
		t.Errorf("expected repo name in %q", withCommit)
	}

	head := r.cloneDirName(cloneKey{
		GitURL: "https://github.com/example/datasets.git",
	})
	if !strings.Contains(head, "HEAD") {
		t.Errorf("expected HEAD marker in %q", head)
	}

	// Same URL at different commits must not collide.
	if withCommit == head {
		t.Error("clone dir names collide across commits")
	}
}

func TestNewResolver(t *testing.T) {
	r, err := NewResolver()
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if r.BaseDir() == "" {
		t.Error("BaseDir() returned empty string")
	}

	if r.loader == nil {
		t.Error("dataset loader is nil")
	}
}

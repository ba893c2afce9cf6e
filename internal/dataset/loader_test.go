package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "train.csv"))
	writeFile(t, filepath.Join(dir, "test.csv"))

	ds, err := NewLoader().LoadFromPath(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if ds.Name != filepath.Base(dir) {
		t.Errorf("expected name %s, got %s", filepath.Base(dir), ds.Name)
	}

	if ds.TrainPath != filepath.Join(dir, "train.csv") {
		t.Errorf("unexpected train path: %s", ds.TrainPath)
	}

	if ds.TestPath != filepath.Join(dir, "test.csv") {
		t.Errorf("unexpected test path: %s", ds.TestPath)
	}
}

func TestLoadFromPathNoTestSplit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "train.parquet"))

	ds, err := NewLoader().LoadFromPath(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if ds.TrainPath == "" {
		t.Error("expected train path to be set")
	}

	if ds.TestPath != "" {
		t.Errorf("expected empty test path, got %s", ds.TestPath)
	}
}

func TestLoadFromPathMissingTrainSplit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "readme.txt"))

	_, err := NewLoader().LoadFromPath(context.Background(), dir)
	if err == nil {
		t.Fatal("expected error for dataset without training split")
	}
}

func TestLoadFromPathNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "train.csv")
	writeFile(t, file)

	_, err := NewLoader().LoadFromPath(context.Background(), file)
	if err == nil {
		t.Fatal("expected error for non-directory dataset path")
	}
}

func TestLoadFromPathNotFound(t *testing.T) {
	_, err := NewLoader().LoadFromPath(context.Background(), "/nonexistent/dataset")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

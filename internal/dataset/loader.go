package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spachava753/sweep/internal/models"
)

// trainFileNames are accepted training split files, checked in order.
var trainFileNames = []string{"train.csv", "train.parquet", "train.jsonl"}

// testFileNames are accepted held-out split files, checked in order.
var testFileNames = []string{"test.csv", "test.parquet", "test.jsonl"}

// Loader loads dataset directories from local paths. The scheduler never
// reads dataset contents; it only validates the layout and hands paths
// through to trial runners.
type Loader struct{}

// NewLoader creates a new dataset loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFromPath loads a dataset from a local directory.
func (l *Loader) LoadFromPath(ctx context.Context, datasetPath string) (*models.Dataset, error) {
	absPath, err := filepath.Abs(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading dataset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset path is not a directory: %s", absPath)
	}

	ds := &models.Dataset{
		Name: filepath.Base(absPath),
		Path: absPath,
	}

	for _, name := range trainFileNames {
		p := filepath.Join(absPath, name)
		if _, err := os.Stat(p); err == nil {
			ds.TrainPath = p
			break
		}
	}
	if ds.TrainPath == "" {
		return nil, fmt.Errorf("dataset %s: no training split found (expected one of %v)", ds.Name, trainFileNames)
	}

	for _, name := range testFileNames {
		p := filepath.Join(absPath, name)
		if _, err := os.Stat(p); err == nil {
			ds.TestPath = p
			break
		}
	}

	return ds, nil
}

package registry

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/sweep/internal/dataset"
	"github.com/spachava753/sweep/internal/models"
)

// Resolver resolves registry datasets by cloning git repositories and
// loading the dataset directories they contain.
type Resolver struct {
	loader  *dataset.Loader
	baseDir string // base directory for clones
}

// NewResolver creates a new Resolver. Clones land under os.TempDir() in a
// timestamped directory.
func NewResolver() (*Resolver, error) {
	baseDir := filepath.Join(os.TempDir(), fmt.Sprintf("sweep-registry-%d", time.Now().Unix()))
	slog.Debug("creating registry resolver base directory", "path", baseDir)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	return &Resolver{
		loader:  dataset.NewLoader(),
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the base directory where repositories are cloned.
func (r *Resolver) BaseDir() string {
	return r.baseDir
}

// Resolve resolves registry entries by cloning the necessary repositories
// and loading each dataset. Repositories are deduplicated by
// (git_url, git_commit_id) to avoid redundant clones.
func (r *Resolver) Resolve(ctx context.Context, entries []Entry) ([]models.Dataset, error) {
	// Group entries by clone key for deduplication
	groups := make(map[cloneKey][]Entry)
	for _, e := range entries {
		key := cloneKey{GitURL: e.GitURL, GitCommitID: e.GitCommitID}
		groups[key] = append(groups[key], e)
	}

	slog.Debug("resolving registry datasets",
		"unique_repos", len(groups),
		"total_datasets", len(entries))

	// Clone each unique repository (parallel)
	clones := make(map[cloneKey]string)
	var clonesMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for key := range groups {
		g.Go(func() error {
			clonePath, err := r.cloneRepo(ctx, key)
			if err != nil {
				return fmt.Errorf("cloning %s: %w", key.GitURL, err)
			}
			clonesMu.Lock()
			clones[key] = clonePath
			clonesMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Load datasets from cloned repositories
	var datasets []models.Dataset
	for _, entry := range entries {
		key := cloneKey{GitURL: entry.GitURL, GitCommitID: entry.GitCommitID}
		clonePath := clones[key]

		dsPath := clonePath
		if entry.Path != "" {
			dsPath = filepath.Join(clonePath, entry.Path)
		}

		slog.Debug("loading dataset from clone", "dataset", entry.Name, "path", dsPath)

		ds, err := r.loader.LoadFromPath(ctx, dsPath)
		if err != nil {
			return nil, fmt.Errorf("loading dataset %s: %w", entry.Name, err)
		}

		// Registry name wins over the directory basename
		ds.Name = entry.Name

		datasets = append(datasets, *ds)
	}

	slog.Debug("resolved all datasets", "count", len(datasets))
	return datasets, nil
}

// cloneRepo clones a repository to baseDir. For specific commits, it does a
// full clone then checks out the commit. For HEAD, it does a shallow clone.
func (r *Resolver) cloneRepo(ctx context.Context, key cloneKey) (string, error) {
	dirName := r.cloneDirName(key)
	clonePath := filepath.Join(r.baseDir, dirName)

	// Already cloned (idempotent)
	if _, err := os.Stat(clonePath); err == nil {
		slog.Debug("repository already cloned", "url", key.GitURL, "path", clonePath)
		return clonePath, nil
	}

	if key.GitCommitID == "" {
		slog.Debug("cloning repository (shallow)", "url", key.GitURL, "dest", clonePath)
		cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", key.GitURL, clonePath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("git clone: %w", err)
		}
	} else {
		slog.Debug("cloning repository (full)", "url", key.GitURL, "commit", key.GitCommitID, "dest", clonePath)
		cmd := exec.CommandContext(ctx, "git", "clone", key.GitURL, clonePath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("git clone: %w", err)
		}

		cmd = exec.CommandContext(ctx, "git", "checkout", key.GitCommitID)
		cmd.Dir = clonePath
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("git checkout %s: %w", key.GitCommitID, err)
		}
	}

	return clonePath, nil
}

// cloneDirName generates a unique directory name for a clone key.
func (r *Resolver) cloneDirName(key cloneKey) string {
	h := sha256.Sum256([]byte(key.GitURL))
	urlHash := fmt.Sprintf("%x", h[:8])

	commitPart := "HEAD"
	if key.GitCommitID != "" {
		commitPart = key.GitCommitID
		if len(commitPart) > 12 {
			commitPart = commitPart[:12]
		}
	}

	repoName := filepath.Base(strings.TrimSuffix(key.GitURL, ".git"))

	return fmt.Sprintf("%s-%s-%s", repoName, urlHash, commitPart)
}

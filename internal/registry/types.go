package registry

// Entry represents a single dataset entry in a registry.json file.
type Entry struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	GitURL      string `json:"git_url"`
	GitCommitID string `json:"git_commit_id,omitempty"` // empty = HEAD
	Path        string `json:"path,omitempty"`          // empty = repo root
}

// cloneKey uniquely identifies a git repository at a specific commit.
type cloneKey struct {
	GitURL      string
	GitCommitID string // empty means HEAD
}

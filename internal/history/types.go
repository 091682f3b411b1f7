// Package history persists per-run records and serves read queries
// over them. Records are append-only; only retention cleanup removes them.
package history

import "errors"

var ErrRecordNotFound = errors.New("run record not found")

// Record is one persisted run. Output holds the decoded return value
// snapshot regardless of how it was stored on disk.
type Record struct {
	ID         string `json:"id"`
	ArtifactID string `json:"artifact_id"`
	Function   string `json:"function"`
	Requester  string `json:"requester,omitempty"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	// Args is the JSON snapshot of positional and keyword arguments.
	Args string `json:"args,omitempty"`
	// Output is the JSON return value, empty for failed runs.
	Output    string `json:"output,omitempty"`
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListFilter narrows List queries. Zero values mean "no constraint".
type ListFilter struct {
	ArtifactID string
	Status     string
	Limit      int
	Offset     int
}

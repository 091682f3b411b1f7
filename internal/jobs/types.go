// Package jobs runs requests asynchronously through a bounded worker
// pool and tracks their lifecycle for polling.
package jobs

import (
	"errors"
	"time"

	"github.com/modelbay/modelbay/internal/runner"
	"github.com/modelbay/modelbay/internal/runs"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrQueueFull   = errors.New("job queue is full")
	ErrStopped     = errors.New("orchestrator is stopped")
)

// State is a job's lifecycle phase. Transitions are strictly
// queued -> running -> {completed, failed}; a job never moves backwards.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is the tracked record of one asynchronous run. Completed means
// the execution attempt finished and its outcome is attached, even if
// the artifact itself failed or timed out; Failed is reserved for
// orchestration faults where no outcome exists.
type Job struct {
	ID          string          `json:"id"`
	Request     *runs.Request   `json:"request"`
	State       State           `json:"state"`
	Outcome     *runner.Outcome `json:"outcome,omitempty"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

func (j *Job) clone() *Job {
	copied := *j
	return &copied
}

// Stats summarizes the registry by state.
type Stats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

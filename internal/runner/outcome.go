// Package runner executes artifact entry points in isolated, time-bounded
// child processes.
package runner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelbay/modelbay/internal/artifacts"
)

// Status classifies the result of one execution attempt.
type Status string

const (
	// StatusSuccess means the entry point returned a JSON-serializable value.
	StatusSuccess Status = "success"
	// StatusFailure means the artifact raised, exited non-zero, or produced
	// an unusable result payload.
	StatusFailure Status = "failure"
	// StatusTimeout means the wall-clock deadline expired and the child was killed.
	StatusTimeout Status = "timeout"
)

// Outcome is the complete result of executing a run request. All
// artifact-originated failures are encoded here; the runner reserves
// returned errors for infrastructure faults.
type Outcome struct {
	Status      Status          `json:"status"`
	ReturnValue json.RawMessage `json:"return_value,omitempty"`
	Stdout      string          `json:"stdout"`
	Stderr      string          `json:"stderr"`
	DurationMs  int64           `json:"duration_ms"`
	Error       string          `json:"error,omitempty"`
	// Suggestions holds remediation hints, populated on timeout.
	Suggestions []string `json:"suggestions,omitempty"`
}

// OK reports whether the execution succeeded.
func (o *Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// timeoutSuggestions builds the remediation hints attached to a timeout
// outcome. The async hint only appears for artifacts not already
// declared heavy, since heavy callers are assumed to know about it.
func timeoutSuggestions(class artifacts.ExecClass, timeout, max time.Duration) []string {
	suggestions := []string{
		"Try a narrower input; smaller datasets finish faster.",
	}
	if timeout < max {
		suggestions = append(suggestions,
			fmt.Sprintf("Raise timeout_seconds (up to %d) and retry.", int(max.Seconds())))
	}
	if class != artifacts.ExecClassHeavy {
		suggestions = append(suggestions,
			"Long-running analyses should be published with the heavy execution class and invoked through the async jobs endpoint.")
	}
	return suggestions
}

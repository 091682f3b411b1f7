// Package runs coordinates a single execution attempt end to end:
// admission, loading, timeout resolution, sandboxed execution, and
// history recording.
package runs

// Request describes one execution attempt. It is constructed per
// invocation and never persisted directly; only its outcome is.
type Request struct {
	// Artifact is the artifact reference to execute.
	Artifact string `json:"artifact"`
	// Function is the entry point to invoke.
	Function string `json:"function"`
	// Args are the positional arguments (JSON-serializable values).
	Args []any `json:"args,omitempty"`
	// Kwargs are the keyword arguments.
	Kwargs map[string]any `json:"kwargs,omitempty"`
	// TimeoutSeconds optionally overrides the class default. It is always
	// clamped into the configured band; callers cannot exceed the maximum.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
	// Requester is an opaque caller identity, recorded with the run.
	Requester string `json:"requester,omitempty"`
}

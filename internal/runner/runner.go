package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modelbay/modelbay/internal/artifacts"
)

const defaultMaxOutputBytes = 1 << 20

// Runner spawns one child process per invocation.
type Runner struct {
	pythonBin      string
	maxOutputBytes int
}

// Options carry the per-invocation limits, resolved by the caller.
type Options struct {
	// Timeout is the hard wall-clock deadline. Must be positive.
	Timeout time.Duration
	// MaxTimeout is the configured ceiling, used to phrase suggestions.
	MaxTimeout time.Duration
	// MemoryLimitMB caps the child's address space where supported (0 disables).
	MemoryLimitMB int
}

// New creates a runner using the given interpreter binary.
func New(pythonBin string, maxOutputBytes int) *Runner {
	if maxOutputBytes <= 0 {
		maxOutputBytes = defaultMaxOutputBytes
	}
	return &Runner{
		pythonBin:      pythonBin,
		maxOutputBytes: maxOutputBytes,
	}
}

// Execute runs the entry point in a fresh child process. Every
// artifact-originated failure (exception, timeout, garbage output) is
// encoded in the Outcome; a non-nil error is returned only for
// infrastructure faults such as failing to spawn the process at all.
func (r *Runner) Execute(ctx context.Context, loaded *artifacts.LoadedArtifact, function string, args []any, kwargs map[string]any, opts Options) (*Outcome, error) {
	workDir, err := os.MkdirTemp("", "modelbay-run-")
	if err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	artifactPath := filepath.Join(workDir, "artifact.py")
	if err := os.WriteFile(artifactPath, loaded.Source, 0o600); err != nil {
		return nil, fmt.Errorf("writing artifact snapshot: %w", err)
	}

	harnessPath := filepath.Join(workDir, "harness.py")
	if err := os.WriteFile(harnessPath, []byte(harnessSource), 0o600); err != nil {
		return nil, fmt.Errorf("writing harness: %w", err)
	}

	payload, err := json.Marshal(harnessPayload{
		ArtifactPath:     filepath.ToSlash(artifactPath),
		Function:         function,
		Args:             args,
		Kwargs:           kwargs,
		MemoryLimitBytes: int64(opts.MemoryLimitMB) << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling call payload: %w", err)
	}

	stdout := newCappedWriter(r.maxOutputBytes)
	stderr := newCappedWriter(r.maxOutputBytes)

	cmd := exec.Command(r.pythonBin, harnessPath)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = workDir
	setProcAttrs(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawning %s: %w", r.pythonBin, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:

	case <-timer.C:
		killProcessTree(cmd)
		<-done
		duration := time.Since(start)
		log.Warn().
			Str("artifact", loaded.Artifact.ID).
			Str("function", function).
			Dur("timeout", opts.Timeout).
			Msg("Execution deadline exceeded, child killed")
		return &Outcome{
			Status:     StatusTimeout,
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
			DurationMs: duration.Milliseconds(),
			Error: fmt.Sprintf("execution exceeded the %ds timeout and was terminated",
				int(opts.Timeout.Seconds())),
			Suggestions: timeoutSuggestions(loaded.Artifact.Class, opts.Timeout, opts.MaxTimeout),
		}, nil

	case <-ctx.Done():
		killProcessTree(cmd)
		<-done
		return &Outcome{
			Status:     StatusFailure,
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
			DurationMs: time.Since(start).Milliseconds(),
			Error:      fmt.Sprintf("execution canceled: %v", ctx.Err()),
		}, nil
	}

	duration := time.Since(start)
	return r.buildOutcome(loaded.Artifact.ID, function, stdout.String(), stderr.String(), duration, waitErr), nil
}

// buildOutcome turns the child's exit state and captured streams into an Outcome.
func (r *Runner) buildOutcome(artifactID, function, stdoutText, stderrText string, duration time.Duration, waitErr error) *Outcome {
	result, rest, found, parseErr := extractResult(stdoutText)

	outcome := &Outcome{
		Stdout:     rest,
		Stderr:     stderrText,
		DurationMs: duration.Milliseconds(),
	}

	switch {
	case found && parseErr == nil && result.OK:
		outcome.Status = StatusSuccess
		outcome.ReturnValue = result.Value

	case found && parseErr == nil:
		outcome.Status = StatusFailure
		if result.Error != nil {
			outcome.Error = *result.Error
		} else {
			outcome.Error = "artifact reported failure without detail"
		}

	case found:
		// Sentinel present but the payload after it would not parse:
		// process killed mid-write or artifact forged the sentinel.
		outcome.Status = StatusFailure
		outcome.Error = fmt.Sprintf("malformed result payload: %v", parseErr)
		log.Warn().
			Str("artifact", artifactID).
			Str("function", function).
			Msg("Result channel corrupted: unparsable payload after sentinel")

	case waitErr != nil:
		outcome.Status = StatusFailure
		outcome.Error = exitMessage(waitErr, stderrText)

	default:
		// Exit 0 with no result sentinel at all.
		outcome.Status = StatusFailure
		outcome.Error = "artifact produced no result payload"
		log.Warn().
			Str("artifact", artifactID).
			Str("function", function).
			Msg("Result channel corrupted: missing sentinel")
	}

	return outcome
}

func exitMessage(waitErr error, stderrText string) string {
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		msg := fmt.Sprintf("artifact process exited with code %d", exitErr.ExitCode())
		if trimmed := strings.TrimSpace(stderrText); trimmed != "" {
			msg += ": " + trimmed
		}
		return msg
	}
	return fmt.Sprintf("waiting for artifact process: %v", waitErr)
}

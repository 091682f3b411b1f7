package runner

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modelbay/modelbay/internal/artifacts"
)

func requirePython(t *testing.T) string {
	t.Helper()
	bin, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	return bin
}

func loadedArtifact(id, source string) *artifacts.LoadedArtifact {
	return &artifacts.LoadedArtifact{
		Artifact: &artifacts.Artifact{
			ID:    id,
			Class: artifacts.ExecClassStandard,
		},
		Source:      []byte(source),
		EntryPoints: artifacts.DiscoverEntryPoints([]byte(source)),
	}
}

func defaultOpts() Options {
	return Options{
		Timeout:    20 * time.Second,
		MaxTimeout: 300 * time.Second,
	}
}

func TestExecuteSuccess(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	loaded := loadedArtifact("calc", `
def add(a, b, scale=1):
    return {"sum": (a + b) * scale}
`)

	outcome, err := r.Execute(context.Background(), loaded, "add",
		[]any{2, 3}, map[string]any{"scale": 10}, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, outcome.Status)

	var value map[string]int
	require.NoError(t, json.Unmarshal(outcome.ReturnValue, &value))
	require.Equal(t, 50, value["sum"])
}

func TestExecuteCapturesPrints(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	loaded := loadedArtifact("noisy", `
import sys

def run():
    print("progress: 50%")
    print("warning text", file=sys.stderr)
    return "done"
`)

	outcome, err := r.Execute(context.Background(), loaded, "run", nil, nil, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, outcome.Status)
	require.Contains(t, outcome.Stdout, "progress: 50%")
	require.Contains(t, outcome.Stderr, "warning text")
	// The result line never leaks into the captured stdout.
	require.NotContains(t, outcome.Stdout, ResultSentinel)
}

func TestExecuteException(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	loaded := loadedArtifact("broken", `
def run():
    raise ValueError("bad ticker: XYZZY")
`)

	outcome, err := r.Execute(context.Background(), loaded, "run", nil, nil, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, StatusFailure, outcome.Status)
	require.Contains(t, outcome.Error, "ValueError")
	require.Contains(t, outcome.Error, "XYZZY")
}

func TestExecuteTimeout(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	loaded := loadedArtifact("slow", `
import time

def run():
    time.sleep(60)
    return "never"
`)

	opts := defaultOpts()
	opts.Timeout = 1 * time.Second

	start := time.Now()
	outcome, err := r.Execute(context.Background(), loaded, "run", nil, nil, opts)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 10*time.Second)

	require.Equal(t, StatusTimeout, outcome.Status)
	require.Contains(t, outcome.Error, "timeout")
	require.NotEmpty(t, outcome.Suggestions)
}

func TestExecuteIsolationBetweenRuns(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	// Module-level state must not survive into the next run.
	loaded := loadedArtifact("counter", `
CALLS = []

def bump():
    CALLS.append(1)
    return len(CALLS)
`)

	for i := 0; i < 2; i++ {
		outcome, err := r.Execute(context.Background(), loaded, "bump", nil, nil, defaultOpts())
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, outcome.Status)
		require.Equal(t, "1", string(outcome.ReturnValue))
	}
}

func TestExecuteUnserializableReturn(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	loaded := loadedArtifact("sets", `
def run():
    return {1, 2, 3}
`)

	outcome, err := r.Execute(context.Background(), loaded, "run", nil, nil, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, StatusFailure, outcome.Status)
	require.Contains(t, outcome.Error, "JSON")
}

func TestExecuteMissingFunction(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	loaded := loadedArtifact("report", `
def generate():
    return 1
`)

	outcome, err := r.Execute(context.Background(), loaded, "nonexistent", nil, nil, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, StatusFailure, outcome.Status)
}

func TestExecuteNoSentinel(t *testing.T) {
	// A child that exits cleanly without emitting a result is a failure,
	// not a silent success. /bin/echo prints its argument and exits 0.
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	r := New("echo", 0)
	loaded := loadedArtifact("report", "def generate():\n    return 1\n")

	outcome, err := r.Execute(context.Background(), loaded, "generate", nil, nil, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, StatusFailure, outcome.Status)
	require.Contains(t, outcome.Error, "no result payload")
}

func TestExecuteSpawnFailureIsInfraError(t *testing.T) {
	r := New("/nonexistent/interpreter", 0)
	loaded := loadedArtifact("report", "def generate():\n    return 1\n")

	_, err := r.Execute(context.Background(), loaded, "generate", nil, nil, defaultOpts())
	require.Error(t, err)
}

func TestExecuteContextCancel(t *testing.T) {
	bin := requirePython(t)
	r := New(bin, 0)

	loaded := loadedArtifact("slow", `
import time

def run():
    time.sleep(60)
`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()

	outcome, err := r.Execute(ctx, loaded, "run", nil, nil, defaultOpts())
	require.NoError(t, err)
	require.Equal(t, StatusFailure, outcome.Status)
	require.Contains(t, outcome.Error, "canceled")
}

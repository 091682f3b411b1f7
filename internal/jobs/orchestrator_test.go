package jobs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modelbay/modelbay/internal/artifacts"
	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/runner"
	"github.com/modelbay/modelbay/internal/runs"
)

func newTestService(t *testing.T, pythonBin string) *runs.Service {
	t.Helper()

	dir := t.TempDir()
	source := "import time\n\ndef work(n=1):\n    return n * 2\n\ndef nap(seconds=5):\n    time.sleep(seconds)\n    return 'rested'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.py"), []byte(source), 0o644))

	registry, err := artifacts.NewRegistry(dir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, registry.Discover())

	loader := artifacts.NewLoader(registry, "")
	run := runner.New(pythonBin, 0)

	cfg := &config.RunnerConfig{
		PythonBin:      pythonBin,
		DefaultTimeout: 10 * time.Second,
		HeavyTimeout:   30 * time.Second,
		MinTimeout:     time.Second,
		MaxTimeout:     60 * time.Second,
	}

	return runs.NewService(registry, loader, run, nil, nil, cfg)
}

func newTestOrchestrator(t *testing.T, svc *runs.Service, workers, queueSize int) *Orchestrator {
	t.Helper()
	return NewOrchestrator(svc, &config.JobsConfig{
		Workers:       workers,
		QueueSize:     queueSize,
		Retention:     time.Hour,
		SweepInterval: time.Minute,
	})
}

func waitForTerminal(t *testing.T, o *Orchestrator, id string) *Job {
	t.Helper()

	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal state", id)
		case <-time.After(20 * time.Millisecond):
		}

		job, err := o.Get(id)
		require.NoError(t, err)
		if job.State.Terminal() {
			return job
		}
	}
}

func TestSubmitAndComplete(t *testing.T) {
	bin, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	svc := newTestService(t, bin)
	o := newTestOrchestrator(t, svc, 2, 8)
	o.Start(context.Background())
	defer o.Stop()

	job, err := o.Submit(context.Background(), &runs.Request{
		Artifact: "model",
		Function: "work",
		Kwargs:   map[string]any{"n": 21},
	})
	require.NoError(t, err)
	require.Equal(t, StateQueued, job.State)
	require.NotEmpty(t, job.ID)

	final := waitForTerminal(t, o, job.ID)
	require.Equal(t, StateCompleted, final.State)
	require.NotNil(t, final.Outcome)
	require.Equal(t, runner.StatusSuccess, final.Outcome.Status)
	require.Equal(t, "42", string(final.Outcome.ReturnValue))
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.FinishedAt)
}

func TestConcurrentJobsRunInParallel(t *testing.T) {
	bin, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	svc := newTestService(t, bin)
	o := newTestOrchestrator(t, svc, 2, 8)
	o.Start(context.Background())
	defer o.Stop()

	start := time.Now()
	ids := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		job, err := o.Submit(context.Background(), &runs.Request{
			Artifact: "model",
			Function: "nap",
			Kwargs:   map[string]any{"seconds": 3},
		})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	for _, id := range ids {
		final := waitForTerminal(t, o, id)
		require.Equal(t, StateCompleted, final.State)
		require.Equal(t, runner.StatusSuccess, final.Outcome.Status)
	}

	// Two 3s jobs on two workers take about one job's duration, not the
	// sum: each runs in its own child process.
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestSubmitReturnsConsistentSnapshot(t *testing.T) {
	// Workers may transition a job before Submit returns; the returned
	// snapshot must be taken under the lock and be safe to read while
	// the worker mutates the tracked job.
	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 2, 64)
	o.Start(context.Background())
	defer o.Stop()

	for i := 0; i < 50; i++ {
		job, err := o.Submit(context.Background(), &runs.Request{
			Artifact: "model",
			Function: "work",
		})
		require.NoError(t, err)

		switch job.State {
		case StateQueued, StateRunning:
			require.Nil(t, job.FinishedAt)
		case StateCompleted:
			require.NotNil(t, job.FinishedAt)
			require.NotNil(t, job.Outcome)
		default:
			t.Fatalf("unexpected state %q for job %s", job.State, job.ID)
		}

		// Mutating the snapshot never reaches the tracked job.
		job.State = StateFailed
		tracked, err := o.Get(job.ID)
		require.NoError(t, err)
		require.NotEqual(t, StateFailed, tracked.State)
	}
}

func TestArtifactFailureStillCompletes(t *testing.T) {
	// The child exits without a result payload. That is an execution
	// failure, but the job itself completed: its outcome is attached.
	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 1, 4)
	o.Start(context.Background())
	defer o.Stop()

	job, err := o.Submit(context.Background(), &runs.Request{
		Artifact: "model",
		Function: "work",
	})
	require.NoError(t, err)

	final := waitForTerminal(t, o, job.ID)
	require.Equal(t, StateCompleted, final.State)
	require.NotNil(t, final.Outcome)
	require.Equal(t, runner.StatusFailure, final.Outcome.Status)
}

func TestSubmitValidatesBeforeQueueing(t *testing.T) {
	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 1, 4)
	o.Start(context.Background())
	defer o.Stop()

	_, err := o.Submit(context.Background(), &runs.Request{
		Artifact: "ghost",
		Function: "work",
	})
	require.ErrorIs(t, err, artifacts.ErrArtifactNotFound)

	_, err = o.Submit(context.Background(), &runs.Request{
		Artifact: "model",
		Function: "missing",
	})
	require.ErrorIs(t, err, artifacts.ErrArtifactInvalid)

	// Rejected submissions never become tracked jobs.
	require.Equal(t, Stats{}, o.Stats())
}

func TestQueueFull(t *testing.T) {
	svc := newTestService(t, "echo")
	// Never started: nothing drains the queue.
	o := newTestOrchestrator(t, svc, 1, 2)

	for i := 0; i < 2; i++ {
		_, err := o.Submit(context.Background(), &runs.Request{
			Artifact: "model",
			Function: "work",
		})
		require.NoError(t, err)
	}

	_, err := o.Submit(context.Background(), &runs.Request{
		Artifact: "model",
		Function: "work",
	})
	require.ErrorIs(t, err, ErrQueueFull)

	// The overflow job is tracked as failed, not lost.
	stats := o.Stats()
	require.Equal(t, 2, stats.Queued)
	require.Equal(t, 1, stats.Failed)
}

func TestGetUnknownJob(t *testing.T) {
	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 1, 2)

	_, err := o.Get("no-such-id")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	job := &Job{ID: "x", State: StateQueued, SubmittedAt: time.Now()}

	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 1, 2)

	o.mu.Lock()
	o.transitionLocked(job, StateRunning, "")
	o.transitionLocked(job, StateCompleted, "")
	finishedAt := job.FinishedAt
	o.transitionLocked(job, StateFailed, "should be ignored")
	o.mu.Unlock()

	require.Equal(t, StateCompleted, job.State)
	require.Empty(t, job.Error)
	require.Equal(t, finishedAt, job.FinishedAt)
}

func TestSweepRemovesExpiredJobs(t *testing.T) {
	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 1, 2)

	old := time.Now().UTC().Add(-2 * time.Hour)
	recent := time.Now().UTC()

	o.mu.Lock()
	o.jobs["old"] = &Job{ID: "old", State: StateCompleted, FinishedAt: &old}
	o.jobs["recent"] = &Job{ID: "recent", State: StateCompleted, FinishedAt: &recent}
	o.jobs["live"] = &Job{ID: "live", State: StateRunning, StartedAt: &old}
	o.mu.Unlock()

	o.sweep()

	_, err := o.Get("old")
	require.ErrorIs(t, err, ErrJobNotFound)

	_, err = o.Get("recent")
	require.NoError(t, err)

	// A running job is never swept, no matter how old.
	_, err = o.Get("live")
	require.NoError(t, err)
}

func TestStopFailsQueuedJobs(t *testing.T) {
	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 1, 4)

	job, err := o.Submit(context.Background(), &runs.Request{
		Artifact: "model",
		Function: "work",
	})
	require.NoError(t, err)

	o.Stop()

	final, err := o.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, StateFailed, final.State)
	require.Contains(t, final.Error, "shut down")

	_, err = o.Submit(context.Background(), &runs.Request{
		Artifact: "model",
		Function: "work",
	})
	require.ErrorIs(t, err, ErrStopped)
}

func TestListNewestFirst(t *testing.T) {
	svc := newTestService(t, "echo")
	o := newTestOrchestrator(t, svc, 1, 8)

	first, err := o.Submit(context.Background(), &runs.Request{Artifact: "model", Function: "work"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := o.Submit(context.Background(), &runs.Request{Artifact: "model", Function: "work"})
	require.NoError(t, err)

	list := o.List()
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

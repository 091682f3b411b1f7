package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/metrics"
	"github.com/modelbay/modelbay/internal/runs"
)

// Orchestrator accepts run requests, executes them on a fixed worker
// pool, and keeps finished jobs pollable until retention expires.
type Orchestrator struct {
	runs  *runs.Service
	cfg   *config.JobsConfig
	queue chan *Job

	mu      sync.Mutex
	jobs    map[string]*Job
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(svc *runs.Service, cfg *config.JobsConfig) *Orchestrator {
	return &Orchestrator{
		runs:  svc,
		cfg:   cfg,
		queue: make(chan *Job, cfg.QueueSize),
		jobs:  make(map[string]*Job),
	}
}

// Start launches the worker pool and the retention sweeper.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx)
	}

	o.wg.Add(1)
	go o.sweepLoop(ctx)

	log.Info().
		Int("workers", o.cfg.Workers).
		Int("queue_size", o.cfg.QueueSize).
		Dur("retention", o.cfg.Retention).
		Msg("Job orchestrator started")
}

// Stop drains the workers. Queued jobs that never ran are marked failed
// so pollers are not left waiting on a state that will never change.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	o.mu.Lock()
	for _, job := range o.jobs {
		if !job.State.Terminal() {
			o.transitionLocked(job, StateFailed, "orchestrator shut down before the job ran")
		}
	}
	o.mu.Unlock()

	log.Info().Msg("Job orchestrator stopped")
}

// Submit validates the request, registers a queued job, and hands it to
// the pool. Invalid requests are rejected before a job is created.
func (o *Orchestrator) Submit(ctx context.Context, req *runs.Request) (*Job, error) {
	o.mu.Lock()
	stopped := o.stopped
	o.mu.Unlock()
	if stopped {
		return nil, ErrStopped
	}

	if err := o.runs.Validate(ctx, req); err != nil {
		return nil, err
	}

	job := &Job{
		ID:          uuid.New().String(),
		Request:     req,
		State:       StateQueued,
		SubmittedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.mu.Unlock()

	select {
	case o.queue <- job:
	default:
		o.mu.Lock()
		o.transitionLocked(job, StateFailed, "job queue is full")
		o.mu.Unlock()
		return nil, ErrQueueFull
	}

	// Snapshot under the lock: a worker may already be transitioning
	// the job by the time the enqueue returns.
	o.mu.Lock()
	snapshot := job.clone()
	o.mu.Unlock()

	o.publishStats()

	log.Debug().
		Str("job_id", job.ID).
		Str("artifact", req.Artifact).
		Str("function", req.Function).
		Msg("Job accepted")

	return snapshot, nil
}

// Get returns a snapshot of the job. Callers receive a copy and cannot
// mutate orchestrator state through it.
func (o *Orchestrator) Get(id string) (*Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.clone(), nil
}

// List returns snapshots of all tracked jobs, newest first.
func (o *Orchestrator) List() []*Job {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		out = append(out, job.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// Stats counts tracked jobs by state.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statsLocked()
}

func (o *Orchestrator) statsLocked() Stats {
	var s Stats
	for _, job := range o.jobs {
		switch job.State {
		case StateQueued:
			s.Queued++
		case StateRunning:
			s.Running++
		case StateCompleted:
			s.Completed++
		case StateFailed:
			s.Failed++
		}
	}
	return s
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-o.queue:
			o.execute(ctx, job)
			o.publishStats()
		}
	}
}

func (o *Orchestrator) execute(ctx context.Context, job *Job) {
	o.mu.Lock()
	if job.State.Terminal() {
		// Marked failed (shutdown or full-queue race) before a worker got to it.
		o.mu.Unlock()
		return
	}
	o.transitionLocked(job, StateRunning, "")
	o.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			o.mu.Lock()
			o.transitionLocked(job, StateFailed, fmt.Sprintf("job panicked: %v", r))
			o.mu.Unlock()
			log.Error().
				Str("job_id", job.ID).
				Interface("panic", r).
				Msg("Job worker recovered from panic")
		}
	}()

	outcome, err := o.runs.Run(ctx, job.Request)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.transitionLocked(job, StateFailed, err.Error())
		return
	}

	job.Outcome = outcome
	o.transitionLocked(job, StateCompleted, "")
}

// transitionLocked applies a state change. Terminal states are final;
// a second transition attempt is ignored. Caller holds o.mu.
func (o *Orchestrator) transitionLocked(job *Job, next State, errMsg string) {
	if job.State.Terminal() {
		return
	}

	job.State = next
	now := time.Now().UTC()

	switch next {
	case StateRunning:
		job.StartedAt = &now
	case StateCompleted, StateFailed:
		job.FinishedAt = &now
		job.Error = errMsg
	}
}

func (o *Orchestrator) sweepLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep()
		}
	}
}

// sweep drops terminal jobs older than the retention window. Live jobs
// are never swept regardless of age.
func (o *Orchestrator) sweep() {
	cutoff := time.Now().UTC().Add(-o.cfg.Retention)

	o.mu.Lock()
	removed := 0
	for id, job := range o.jobs {
		if job.State.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(o.jobs, id)
			removed++
		}
	}
	o.mu.Unlock()

	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Expired jobs swept")
	}
	o.publishStats()
}

func (o *Orchestrator) publishStats() {
	stats := o.Stats()
	metrics.UpdateJobStats(stats.Queued, stats.Running, stats.Completed, stats.Failed)
	metrics.UpdateQueueDepth(len(o.queue))
}

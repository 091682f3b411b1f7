package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/runner"
	"github.com/modelbay/modelbay/internal/runs"
)

// Recorder persists run outcomes and prunes expired records on a
// timer. Recording failures are logged and never propagated, so a
// broken history store cannot fail a run that already finished.
type Recorder struct {
	store  *Store
	cfg    *config.HistoryConfig
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRecorder(store *Store, cfg *config.HistoryConfig) *Recorder {
	return &Recorder{
		store: store,
		cfg:   cfg,
	}
}

// Record implements runs.Recorder.
func (r *Recorder) Record(ctx context.Context, req *runs.Request, outcome *runner.Outcome) {
	rec := &Record{
		ID:         uuid.New().String(),
		ArtifactID: req.Artifact,
		Function:   req.Function,
		Requester:  req.Requester,
		Status:     string(outcome.Status),
		DurationMs: outcome.DurationMs,
		Args:       marshalArgs(req),
		Output:     string(outcome.ReturnValue),
		Stdout:     outcome.Stdout,
		Stderr:     outcome.Stderr,
		Error:      outcome.Error,
	}

	// The run is already finished; don't let a canceled request context
	// block the write.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.store.Create(writeCtx, rec); err != nil {
		log.Error().Err(err).
			Str("artifact", req.Artifact).
			Str("function", req.Function).
			Msg("Failed to record run history")
	}
}

func marshalArgs(req *runs.Request) string {
	snapshot := map[string]any{
		"args":   req.Args,
		"kwargs": req.Kwargs,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Start launches the retention cleanup loop.
func (r *Recorder) Start(ctx context.Context) {
	if r.cfg.Retention <= 0 || r.cfg.CleanupInterval <= 0 {
		log.Debug().Msg("History retention cleanup disabled")
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.cleanupLoop(ctx)

	log.Info().
		Dur("retention", r.cfg.Retention).
		Dur("interval", r.cfg.CleanupInterval).
		Msg("History retention cleanup started")
}

// Stop terminates the cleanup loop and waits for it to finish.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Recorder) cleanupLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup(ctx)
		}
	}
}

func (r *Recorder) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.cfg.Retention).Format(time.RFC3339)

	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("History cleanup failed")
		return
	}
	if deleted > 0 {
		log.Debug().Int64("deleted", deleted).Msg("Expired run records removed")
	}
}

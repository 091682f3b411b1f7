package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/modelbay/modelbay/internal/jobs"
)

const watchPollInterval = 500 * time.Millisecond

// WatchJob upgrades to a WebSocket and pushes the job's state on every
// change until it reaches a terminal state. The terminal snapshot is
// always delivered before the socket closes.
func (h *Handlers) WatchJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.orchestrator.Get(id); err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			NotFound(w, "job not found: "+id)
			return
		}
		InternalError(w, err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to accept WebSocket connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "watch aborted")

	ctx := r.Context()
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	var lastState jobs.State
	for {
		job, err := h.orchestrator.Get(id)
		if err != nil {
			// Swept by retention while being watched.
			conn.Close(websocket.StatusGoingAway, "job expired")
			return
		}

		if job.State != lastState {
			lastState = job.State
			if err := writeJob(ctx, conn, job); err != nil {
				return
			}
			if job.State.Terminal() {
				conn.Close(websocket.StatusNormalClosure, "job finished")
				return
			}
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-ticker.C:
		}
	}
}

func writeJob(ctx context.Context, conn *websocket.Conn, job *jobs.Job) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, conn, job)
}

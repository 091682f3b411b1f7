// Package handlers implements the HTTP API surface.
package handlers

import (
	"errors"
	"net/http"

	"github.com/modelbay/modelbay/internal/artifacts"
	"github.com/modelbay/modelbay/internal/database"
	"github.com/modelbay/modelbay/internal/history"
	"github.com/modelbay/modelbay/internal/jobs"
	"github.com/modelbay/modelbay/internal/policy"
	"github.com/modelbay/modelbay/internal/runs"
)

// Handlers bundles the services the API endpoints operate on.
type Handlers struct {
	runs         *runs.Service
	orchestrator *jobs.Orchestrator
	registry     *artifacts.Registry
	loader       *artifacts.Loader
	history      *history.Store
	db           *database.DB
}

func New(svc *runs.Service, orchestrator *jobs.Orchestrator, registry *artifacts.Registry, loader *artifacts.Loader, historyStore *history.Store, db *database.DB) *Handlers {
	return &Handlers{
		runs:         svc,
		orchestrator: orchestrator,
		registry:     registry,
		loader:       loader,
		history:      historyStore,
		db:           db,
	}
}

// writeRequestError maps service errors onto HTTP statuses. Unknown
// artifacts are 404, bad references and missing entry points are 422,
// policy denials 403, a full queue 429, everything else 500.
func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, artifacts.ErrArtifactNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, artifacts.ErrArtifactInvalid):
		Unprocessable(w, err.Error())
	case errors.Is(err, policy.ErrDenied):
		Forbidden(w, err.Error())
	case errors.Is(err, jobs.ErrQueueFull):
		Error(w, http.StatusTooManyRequests, "QUEUE_FULL", err.Error())
	case errors.Is(err, jobs.ErrStopped):
		Error(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
	default:
		InternalError(w, err.Error())
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/modelbay/modelbay/internal/jobs"
)

// SubmitJob queues a run for asynchronous execution. The request is
// validated before a job is created, so callers get an immediate error
// for unknown artifacts or entry points.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}

	job, err := h.orchestrator.Submit(r.Context(), req)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, job)
}

// GetJob returns the current snapshot of one job.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := h.orchestrator.Get(id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			NotFound(w, "job not found: "+id)
			return
		}
		InternalError(w, err.Error())
		return
	}

	JSON(w, http.StatusOK, job)
}

// ListJobs returns all tracked jobs, newest first.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	list := h.orchestrator.List()
	JSON(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"total": len(list),
		"stats": h.orchestrator.Stats(),
	})
}

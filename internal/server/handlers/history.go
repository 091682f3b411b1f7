package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/modelbay/modelbay/internal/history"
)

// ListHistory returns run records newest first. Supported query
// parameters: artifact, status, limit, offset.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseHistoryFilter(w, r)
	if !ok {
		return
	}

	records, err := h.history.List(r.Context(), filter)
	if err != nil {
		InternalError(w, err.Error())
		return
	}

	total, err := h.history.Count(r.Context(), filter)
	if err != nil {
		InternalError(w, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
	})
}

// GetHistoryRecord returns one run record by id.
func (h *Handlers) GetHistoryRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := h.history.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			NotFound(w, "run record not found: "+id)
			return
		}
		InternalError(w, err.Error())
		return
	}

	JSON(w, http.StatusOK, rec)
}

// ListArtifactHistory returns the run records for one artifact.
func (h *Handlers) ListArtifactHistory(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseHistoryFilter(w, r)
	if !ok {
		return
	}
	filter.ArtifactID = r.PathValue("id")

	records, err := h.history.List(r.Context(), filter)
	if err != nil {
		InternalError(w, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   len(records),
	})
}

func parseHistoryFilter(w http.ResponseWriter, r *http.Request) (history.ListFilter, bool) {
	filter := history.ListFilter{
		ArtifactID: r.URL.Query().Get("artifact"),
		Status:     r.URL.Query().Get("status"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			BadRequest(w, "limit must be a non-negative integer")
			return filter, false
		}
		filter.Limit = limit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			BadRequest(w, "offset must be a non-negative integer")
			return filter, false
		}
		filter.Offset = offset
	}

	return filter, true
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/modelbay/modelbay/internal/runs"
)

// SubmitRun executes a run request synchronously and returns its
// outcome. The HTTP status is 200 even when the artifact itself failed
// or timed out; the outcome's status field carries that distinction.
func (h *Handlers) SubmitRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}

	outcome, err := h.runs.Run(r.Context(), req)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	JSON(w, http.StatusOK, outcome)
}

func decodeRunRequest(w http.ResponseWriter, r *http.Request) (*runs.Request, bool) {
	var req runs.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body: "+err.Error())
		return nil, false
	}

	if req.Artifact == "" {
		BadRequest(w, "artifact is required")
		return nil, false
	}
	if req.Function == "" {
		BadRequest(w, "function is required")
		return nil, false
	}
	if req.TimeoutSeconds < 0 {
		BadRequest(w, "timeout_seconds must not be negative")
		return nil, false
	}

	return &req, true
}

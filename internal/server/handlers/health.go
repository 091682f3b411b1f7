package handlers

import (
	"net/http"
)

// HealthCheck reports process and database health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, map[string]any{
		"status":    status,
		"artifacts": h.registry.Count(),
		"jobs":      h.orchestrator.Stats(),
	})
}

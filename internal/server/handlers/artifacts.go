package handlers

import (
	"net/http"
)

// ListArtifacts returns the registry contents.
func (h *Handlers) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	list := h.registry.List()
	JSON(w, http.StatusOK, map[string]any{
		"artifacts": list,
		"total":     len(list),
	})
}

type artifactDetail struct {
	ID             string   `json:"id"`
	Class          string   `json:"class"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	MemoryMB       int      `json:"memory_mb,omitempty"`
	Description    string   `json:"description,omitempty"`
	HasManifest    bool     `json:"has_manifest"`
	EntryPoints    []string `json:"entry_points"`
}

// GetArtifact loads one artifact and returns its metadata plus the
// entry points discovered in the current source.
func (h *Handlers) GetArtifact(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("id")

	loaded, err := h.loader.Load(r.Context(), ref)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	JSON(w, http.StatusOK, artifactDetail{
		ID:             loaded.Artifact.ID,
		Class:          string(loaded.Artifact.Class),
		TimeoutSeconds: loaded.Artifact.TimeoutSeconds,
		MemoryMB:       loaded.Artifact.MemoryMB,
		Description:    loaded.Artifact.Description,
		HasManifest:    loaded.Artifact.HasManifest,
		EntryPoints:    loaded.EntryPoints,
	})
}

// ReloadArtifacts rescans the artifact root.
func (h *Handlers) ReloadArtifacts(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Reload(); err != nil {
		InternalError(w, "reloading artifacts: "+err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"total": h.registry.Count(),
	})
}

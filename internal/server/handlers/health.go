package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/smtindex/internal/server/response"
)

// HandleHealth handles GET /health and GET /api/v1/health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "smtindex",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready. It fails with 503 until an index
// has been loaded.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	idx, err := h.provider.Index()
	if err != nil {
		response.ServiceUnavailable(w, "no index loaded")
		return
	}

	response.OK(w, map[string]any{
		"status":         "ready",
		"schema_version": idx.SchemaVersion,
		"generated_at":   idx.GeneratedAt,
		"templates":      len(idx.Templates),
		"loaded_at":      h.provider.LoadedAt().UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"cache": map[string]any{
			"items": h.cache.ItemCount(),
		},
	})
}

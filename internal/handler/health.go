package handler

import (
	"net/http"

	"github.com/brightpath-ai/tutoring-platform/internal/llm"
	natsclient "github.com/brightpath-ai/tutoring-platform/internal/nats"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db         *store.DB
	natsClient *natsclient.Client
	registry   *llm.Registry
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *store.DB, natsClient *natsclient.Client, registry *llm.Registry) *HealthHandler {
	return &HealthHandler{
		db:         db,
		natsClient: natsClient,
		registry:   registry,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database not reachable",
		})
		return
	}

	if h.natsClient == nil || !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Models handles GET /api/v1/models
func (h *HealthHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models": h.registry.Models(),
	})
}

package handler

import (
	"net/http"
	"time"

	"github.com/agentdesk/admin-platform/internal/store"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store   *store.Store
	started time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(st *store.Store) *HealthHandler {
	return &HealthHandler{store: st, started: time.Now()}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Ready handles GET /ready. Not ready until the database answers a ping.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

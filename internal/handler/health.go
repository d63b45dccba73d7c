package handler

import (
	"net/http"

	"github.com/stablehq/stablecast/internal/realtime"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	broker *realtime.Broker
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(broker *realtime.Broker) *HealthHandler {
	return &HealthHandler{broker: broker}
}

// Health is a simple liveness probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness. Everything is in-memory, so readiness follows
// liveness; connection count is included for operators.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"connections": h.broker.ConnectionCount(),
	})
}

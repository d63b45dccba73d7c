package handler

import (
	"net/http"
	"time"

	"github.com/stablehq/stablecast/internal/realtime"
)

// StatsHandler serves realtime usage statistics for the admin dashboard.
type StatsHandler struct {
	broker  *realtime.Broker
	started time.Time
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(broker *realtime.Broker) *StatsHandler {
	return &StatsHandler{broker: broker, started: time.Now()}
}

type statsResponse struct {
	UptimeSeconds int64          `json:"uptime_seconds"`
	Realtime      realtime.Stats `json:"realtime"`
}

// Realtime reports live connection and channel statistics.
func (h *StatsHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Realtime:      h.broker.Snapshot(),
	})
}

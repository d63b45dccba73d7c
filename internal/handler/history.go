package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stablehq/stablecast/internal/realtime"
)

const defaultHistoryLimit = 50

// HistoryHandler serves reconnect replay reads.
type HistoryHandler struct {
	broker *realtime.Broker
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(broker *realtime.Broker) *HistoryHandler {
	return &HistoryHandler{broker: broker}
}

type historyResponse struct {
	Channel string           `json:"channel"`
	Events  []realtime.Event `json:"events"`
}

// Get returns up to `limit` most recent events on a channel, oldest first.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if channel == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	evts := h.broker.History(channel, limit)
	if evts == nil {
		evts = []realtime.Event{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Channel: channel, Events: evts})
}

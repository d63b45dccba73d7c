package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stablehq/stablecast/internal/realtime"
)

// SubscriptionHandler manages channel subscriptions for live connections.
type SubscriptionHandler struct {
	broker *realtime.Broker
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(broker *realtime.Broker) *SubscriptionHandler {
	return &SubscriptionHandler{broker: broker}
}

type subscriptionRequest struct {
	ConnectionID string   `json:"connection_id"`
	Channels     []string `json:"channels"`
}

// Subscribe adds channels to a connection. A connection that disconnected
// concurrently is not an error; the call is a no-op then.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.broker.Subscribe(req.ConnectionID, req.Channels...)
	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe removes channels from a connection.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.broker.Unsubscribe(req.ConnectionID, req.Channels...)
	w.WriteHeader(http.StatusNoContent)
}

// Disconnect explicitly removes a connection. Removing an id that already
// went away is harmless.
func (h *SubscriptionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "connection id is required")
		return
	}
	h.broker.RemoveConnection(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) decode(w http.ResponseWriter, r *http.Request) (subscriptionRequest, bool) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return req, false
	}
	if req.ConnectionID == "" {
		writeError(w, http.StatusBadRequest, "connection_id is required")
		return req, false
	}
	if len(req.Channels) == 0 {
		writeError(w, http.StatusBadRequest, "channels is required")
		return req, false
	}
	return req, true
}

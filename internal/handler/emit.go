package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stablehq/stablecast/internal/events"
	"github.com/stablehq/stablecast/internal/realtime"
)

const maxPayloadSize = 64 * 1024 // 64KB

// EmitHandler handles event publishing from business-logic collaborators.
type EmitHandler struct {
	publisher *events.Publisher
}

// NewEmitHandler creates an EmitHandler.
func NewEmitHandler(publisher *events.Publisher) *EmitHandler {
	return &EmitHandler{publisher: publisher}
}

type emitRequest struct {
	Module  string          `json:"module"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
	OwnerID *int64          `json:"owner_id,omitempty"`
}

type emitGlobalRequest struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type emitResponse struct {
	Channel   string    `json:"channel"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Emit publishes a `<module>:<action>` event, routed to the owner's channel
// when owner_id is present, else to the module channel.
func (h *EmitHandler) Emit(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	evt, err := h.publisher.PublishModuleEvent(req.Module, req.Action, req.Payload, req.OwnerID)
	if err != nil {
		if errors.Is(err, events.ErrEmptyModule) || errors.Is(err, events.ErrEmptyAction) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to publish event", "error", err, "module", req.Module, "action", req.Action)
		writeError(w, http.StatusInternalServerError, "failed to publish event")
		return
	}

	writeJSON(w, http.StatusOK, emitResponse{
		Channel:   evt.Channel,
		Event:     evt.Name,
		Timestamp: evt.Timestamp,
	})
}

// EmitGlobal publishes to the broadcast channel seen by every connection.
func (h *EmitHandler) EmitGlobal(w http.ResponseWriter, r *http.Request) {
	var req emitGlobalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	evt, err := h.publisher.PublishGlobal(req.Event, req.Payload)
	if err != nil {
		if errors.Is(err, realtime.ErrEmptyEvent) {
			writeError(w, http.StatusBadRequest, "event is required")
			return
		}
		slog.Error("failed to publish global event", "error", err, "event", req.Event)
		writeError(w, http.StatusInternalServerError, "failed to publish event")
		return
	}

	writeJSON(w, http.StatusOK, emitResponse{
		Channel:   evt.Channel,
		Event:     evt.Name,
		Timestamp: evt.Timestamp,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if strings.Contains(err.Error(), "http: request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large, max 64KB")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

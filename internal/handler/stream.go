package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stablehq/stablecast/internal/middleware"
	"github.com/stablehq/stablecast/internal/realtime"
)

const defaultHeartbeat = 30 * time.Second

// StreamHandler serves the SSE streaming endpoint.
type StreamHandler struct {
	broker    *realtime.Broker
	heartbeat time.Duration
}

// NewStreamHandler creates a StreamHandler. A non-positive heartbeat falls
// back to the default; tickers reject zero intervals.
func NewStreamHandler(broker *realtime.Broker, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{broker: broker, heartbeat: heartbeat}
}

// Stream registers a connection for the authenticated user and pushes its
// events as text/event-stream frames until the client disconnects or a
// write fails. Query params: channels (comma-separated extra subscriptions)
// and replay (per-channel history backfill count).
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var extra []string
	if raw := r.URL.Query().Get("channels"); raw != "" {
		extra = strings.Split(raw, ",")
	}
	replay, _ := strconv.Atoi(r.URL.Query().Get("replay"))

	conn := h.broker.Register(owner)
	defer h.broker.RemoveConnection(conn.ID)
	h.broker.Subscribe(conn.ID, extra...)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)

	// The session id frame goes out first so the client can reference its
	// connection id in subscription calls. Register queued it synchronously.
	select {
	case evt := <-conn.Events():
		if err := writeEvent(w, evt); err != nil {
			return
		}
	default:
	}
	flusher.Flush()

	// Replay history before live delivery. An event published between
	// Register and this loop may appear both here and live; duplicates
	// across that window are acceptable, gaps are not.
	if replay > 0 {
		for _, ch := range replayChannels(owner, extra) {
			for _, evt := range h.broker.History(ch, replay) {
				if err := writeEvent(w, evt); err != nil {
					return
				}
			}
		}
		flusher.Flush()
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, ok := <-conn.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, evt); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// replayChannels lists the channels a fresh connection is subscribed to,
// in a stable order.
func replayChannels(owner int64, extra []string) []string {
	chans := []string{realtime.GlobalChannel, realtime.OwnerChannel(owner)}
	for _, ch := range extra {
		if ch != "" && ch != realtime.GlobalChannel {
			chans = append(chans, ch)
		}
	}
	return chans
}

func writeEvent(w io.Writer, evt realtime.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Name, data)
	return err
}

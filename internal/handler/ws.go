package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stablehq/stablecast/internal/middleware"
	"github.com/stablehq/stablecast/internal/realtime"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 4 * 1024
)

// wsMessage is the inbound control protocol: subscription management only,
// event flow is one-way server to client.
type wsMessage struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSHandler serves the WebSocket transport alternative to SSE. Outbound
// frames carry the same event JSON; pings stand in for SSE heartbeats.
type WSHandler struct {
	broker    *realtime.Broker
	heartbeat time.Duration
	upgrader  ws.Upgrader
}

// NewWSHandler creates a WSHandler accepting the given browser origins. A
// non-positive heartbeat falls back to the default.
func NewWSHandler(broker *realtime.Broker, heartbeat time.Duration, origins []string) *WSHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &WSHandler{
		broker:    broker,
		heartbeat: heartbeat,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser clients
				}
				for _, o := range origins {
					if o == origin || o == "*" {
						return true
					}
				}
				return false
			},
		},
	}
}

// Serve upgrades the request and runs the session pumps.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := h.broker.Register(owner)
	sess := &wsSession{
		broker:    h.broker,
		sock:      sock,
		conn:      conn,
		heartbeat: h.heartbeat,
	}
	go sess.writePump()
	go sess.readPump()
}

type wsSession struct {
	broker    *realtime.Broker
	sock      *ws.Conn
	conn      *realtime.Connection
	heartbeat time.Duration
}

// writePump pushes events and pings to the socket. Any write failure is
// treated as a disconnect and removes the connection from the broker.
func (s *wsSession) writePump() {
	ticker := time.NewTicker(s.heartbeat)
	defer func() {
		ticker.Stop()
		s.broker.RemoveConnection(s.conn.ID)
		s.sock.Close()
	}()

	for {
		select {
		case evt, ok := <-s.conn.Events():
			s.sock.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				s.sock.WriteMessage(ws.CloseMessage, []byte{})
				return
			}
			if err := s.sock.WriteJSON(evt); err != nil {
				return
			}

		case <-ticker.C:
			s.sock.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.sock.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles subscribe/unsubscribe messages until the client goes
// away.
func (s *wsSession) readPump() {
	defer func() {
		s.broker.RemoveConnection(s.conn.ID)
		s.sock.Close()
	}()

	pongWait := 2 * s.heartbeat
	s.sock.SetReadLimit(wsMaxMessageSize)
	s.sock.SetReadDeadline(time.Now().Add(pongWait))
	s.sock.SetPongHandler(func(string) error {
		s.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.sock.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure, ws.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "connection_id", s.conn.ID, "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case "subscribe":
			s.broker.Subscribe(s.conn.ID, msg.Channels...)
		case "unsubscribe":
			s.broker.Unsubscribe(s.conn.ID, msg.Channels...)
		}
	}
}

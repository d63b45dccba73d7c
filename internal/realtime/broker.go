package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyChannel is returned by Publish when the channel name is empty.
	ErrEmptyChannel = errors.New("realtime: empty channel name")
	// ErrEmptyEvent is returned by Publish when the event name is empty.
	ErrEmptyEvent = errors.New("realtime: empty event name")
)

// Config controls broker sizing. Zero values fall back to defaults.
type Config struct {
	// HistorySize is the per-channel history ring capacity.
	HistorySize int
	// SendBuffer is the per-connection delivery queue depth. A connection
	// whose queue is full when an event arrives is treated as a failed
	// write and removed.
	SendBuffer int
}

const (
	defaultHistorySize = 50
	defaultSendBuffer  = 64
)

// Connection is one live streaming session. The transport pump owns the
// receive side of the delivery queue; the broker owns everything else.
type Connection struct {
	ID    string
	Owner int64

	send chan Event
	subs map[string]struct{} // guarded by the broker mutex
}

// Events returns the delivery queue. The channel is closed when the
// connection is removed from the broker; no events follow after that.
func (c *Connection) Events() <-chan Event {
	return c.send
}

// Broker fans out published events to subscribed connections and retains a
// short per-channel history for reconnect replay. One instance is created
// at startup and injected into every collaborator; all state is in-memory
// and discarded on process exit.
type Broker struct {
	cfg Config

	mu      sync.Mutex
	conns   map[string]*Connection
	history map[string]*ring

	now func() time.Time
}

// New creates a Broker.
func New(cfg Config) *Broker {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return &Broker{
		cfg:     cfg,
		conns:   make(map[string]*Connection),
		history: make(map[string]*ring),
		now:     time.Now,
	}
}

// Register allocates a new connection for an already-authenticated owner.
// The connection is subscribed to the global channel and the owner's channel,
// and a system:connected event carrying the connection id is queued as its
// first delivery. Register never blocks on the consumer.
func (b *Broker) Register(owner int64) *Connection {
	conn := &Connection{
		ID:    uuid.NewString(),
		Owner: owner,
		send:  make(chan Event, b.cfg.SendBuffer),
		subs: map[string]struct{}{
			GlobalChannel:       {},
			OwnerChannel(owner): {},
		},
	}

	payload, _ := json.Marshal(map[string]string{"connection_id": conn.ID})
	conn.send <- Event{
		Channel:   OwnerChannel(owner),
		Name:      ConnectedEvent,
		Payload:   payload,
		Timestamp: b.now(),
	}

	b.mu.Lock()
	b.conns[conn.ID] = conn
	total := len(b.conns)
	b.mu.Unlock()

	slog.Debug("connection registered", "connection_id", conn.ID, "owner", owner, "total", total)
	return conn
}

// Subscribe adds channels to a connection's subscription set. Unknown
// connection ids are ignored: the connection may have disconnected
// concurrently, which is not an error.
func (b *Broker) Subscribe(connectionID string, channels ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.conns[connectionID]
	if !ok {
		return
	}
	for _, ch := range channels {
		if ch != "" {
			conn.subs[ch] = struct{}{}
		}
	}
}

// Unsubscribe removes channels from a connection's subscription set.
// Unknown ids and channels not currently subscribed are ignored.
func (b *Broker) Unsubscribe(connectionID string, channels ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.conns[connectionID]
	if !ok {
		return
	}
	for _, ch := range channels {
		delete(conn.subs, ch)
	}
}

// Publish creates an event, appends it to the channel's history ring and
// delivers it to every connection subscribed to the channel. History append
// and fan-out happen under one lock, so a consumer can never observe an
// event via live push that History on the same channel would not return.
//
// A connection whose delivery queue is full is indistinguishable from one
// whose transport write failed: it is dropped, and fan-out to the remaining
// connections continues.
func (b *Broker) Publish(channel, name string, payload json.RawMessage) (Event, error) {
	if channel == "" {
		return Event{}, ErrEmptyChannel
	}
	if name == "" {
		return Event{}, ErrEmptyEvent
	}

	evt := Event{
		Channel:   channel,
		Name:      name,
		Payload:   payload,
		Timestamp: b.now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.history[channel]
	if !ok {
		r = newRing(b.cfg.HistorySize)
		b.history[channel] = r
	}
	r.append(evt)

	for id, conn := range b.conns {
		if _, ok := conn.subs[channel]; !ok {
			continue
		}
		select {
		case conn.send <- evt:
		default:
			slog.Warn("delivery failed, dropping connection",
				"connection_id", id,
				"channel", channel,
				"event", name,
			)
			b.removeLocked(id)
		}
	}
	return evt, nil
}

// PublishToOwner publishes to the owner's per-user channel.
func (b *Broker) PublishToOwner(owner int64, name string, payload json.RawMessage) (Event, error) {
	return b.Publish(OwnerChannel(owner), name, payload)
}

// History returns up to limit of the most recent events published to a
// channel, oldest first. Read-only; ring state is not mutated.
func (b *Broker) History(channel string, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.history[channel]
	if !ok {
		return nil
	}
	return r.tail(limit)
}

// RemoveConnection drops a connection from the registry and closes its
// delivery queue. Idempotent: removing an unknown or already-removed id is
// a no-op. Called on remote disconnect, on write failure, or explicitly.
func (b *Broker) RemoveConnection(connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(connectionID)
}

func (b *Broker) removeLocked(connectionID string) {
	conn, ok := b.conns[connectionID]
	if !ok {
		return
	}
	delete(b.conns, connectionID)
	close(conn.send)
	slog.Debug("connection removed", "connection_id", connectionID, "total", len(b.conns))
}

// Close drops every connection. Used on shutdown; transport pumps observe
// their queues closing and exit.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.conns {
		b.removeLocked(id)
	}
}

// ConnectionCount returns the number of live connections.
func (b *Broker) ConnectionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// ChannelStats describes one channel for the admin dashboard.
type ChannelStats struct {
	Subscribers int `json:"subscribers"`
	Buffered    int `json:"buffered"`
}

// Stats is a point-in-time snapshot of broker state.
type Stats struct {
	Connections int                     `json:"connections"`
	Channels    map[string]ChannelStats `json:"channels"`
}

// Snapshot reports live connection and channel statistics.
func (b *Broker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Connections: len(b.conns),
		Channels:    make(map[string]ChannelStats),
	}
	for ch, r := range b.history {
		s.Channels[ch] = ChannelStats{Buffered: r.len()}
	}
	for _, conn := range b.conns {
		for ch := range conn.subs {
			cs := s.Channels[ch]
			cs.Subscribers++
			s.Channels[ch] = cs
		}
	}
	return s
}

package realtime

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"
)

// recvEvent pops the next queued event. Publish is synchronous, so queued
// events are immediately observable without waiting.
func recvEvent(t *testing.T, c *Connection) Event {
	t.Helper()
	select {
	case e, ok := <-c.Events():
		if !ok {
			t.Fatal("connection queue closed unexpectedly")
		}
		return e
	default:
		t.Fatal("expected a queued event, got none")
	}
	return Event{}
}

func assertNoEvent(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case e, ok := <-c.Events():
		if ok {
			t.Fatalf("unexpected event %s on channel %s", e.Name, e.Channel)
		}
	default:
	}
}

func TestRegister_ConnectedEventFirst(t *testing.T) {
	b := New(Config{})
	conn := b.Register(7)

	if conn.ID == "" {
		t.Fatal("connection id is empty")
	}

	first := recvEvent(t, conn)
	if first.Name != ConnectedEvent {
		t.Fatalf("first event = %q, want %q", first.Name, ConnectedEvent)
	}

	var payload map[string]string
	if err := json.Unmarshal(first.Payload, &payload); err != nil {
		t.Fatalf("unmarshal connected payload: %v", err)
	}
	if payload["connection_id"] != conn.ID {
		t.Errorf("connected payload id = %q, want %q", payload["connection_id"], conn.ID)
	}
}

func TestPublish_FIFOPerChannel(t *testing.T) {
	b := New(Config{})
	conn := b.Register(1)
	recvEvent(t, conn) // connected

	b.Subscribe(conn.ID, "horses")

	for i := 0; i < 5; i++ {
		if _, err := b.Publish("horses", "updated", json.RawMessage(strconv.Itoa(i))); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		e := recvEvent(t, conn)
		if string(e.Payload) != strconv.Itoa(i) {
			t.Errorf("event %d payload = %s, want %d", i, e.Payload, i)
		}
	}
	assertNoEvent(t, conn)
}

func TestPublish_EmptyInputs(t *testing.T) {
	b := New(Config{})

	if _, err := b.Publish("", "created", nil); !errors.Is(err, ErrEmptyChannel) {
		t.Errorf("empty channel error = %v, want ErrEmptyChannel", err)
	}
	if _, err := b.Publish("horses", "", nil); !errors.Is(err, ErrEmptyEvent) {
		t.Errorf("empty event error = %v, want ErrEmptyEvent", err)
	}
}

func TestPublish_TargetsOnlySubscribers(t *testing.T) {
	b := New(Config{})
	a := b.Register(42)
	c := b.Register(43)
	recvEvent(t, a)
	recvEvent(t, c)

	if _, err := b.Publish(OwnerChannel(42), "task:completed", nil); err != nil {
		t.Fatal(err)
	}

	got := recvEvent(t, a)
	if got.Channel != "user:42" {
		t.Errorf("channel = %q, want user:42", got.Channel)
	}
	assertNoEvent(t, c)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := New(Config{})
	conn := b.Register(1)
	recvEvent(t, conn)

	b.Subscribe(conn.ID, "documents")
	b.Publish("documents", "uploaded", nil)
	if e := recvEvent(t, conn); e.Name != "uploaded" {
		t.Fatalf("event = %q, want uploaded", e.Name)
	}

	b.Unsubscribe(conn.ID, "documents")
	b.Publish("documents", "uploaded", nil)
	assertNoEvent(t, conn)

	// Unknown ids and unsubscribed channels are benign no-ops.
	b.Subscribe("no-such-id", "documents")
	b.Unsubscribe("no-such-id", "documents")
	b.Unsubscribe(conn.ID, "never-subscribed")
}

func TestRemoveConnection_Idempotent(t *testing.T) {
	b := New(Config{})
	conn := b.Register(1)

	b.RemoveConnection(conn.ID)
	if n := b.ConnectionCount(); n != 0 {
		t.Fatalf("connection count = %d, want 0", n)
	}
	b.RemoveConnection(conn.ID)
	b.RemoveConnection("no-such-id")

	if _, err := b.Publish(OwnerChannel(1), "updated", nil); err != nil {
		t.Fatal(err)
	}
}

func TestPublish_SlowConsumerDropped(t *testing.T) {
	b := New(Config{SendBuffer: 1})
	slow := b.Register(1) // connected event fills the queue
	ok := b.Register(2)
	recvEvent(t, ok)

	if _, err := b.Publish(GlobalChannel, "ping", nil); err != nil {
		t.Fatal(err)
	}

	if n := b.ConnectionCount(); n != 1 {
		t.Fatalf("connection count = %d, want 1 (slow consumer dropped)", n)
	}
	if e := recvEvent(t, ok); e.Name != "ping" {
		t.Errorf("surviving connection got %q, want ping", e.Name)
	}

	// The dropped connection's queue still drains its buffered event, then
	// reports closed.
	recvEvent(t, slow)
	if _, open := <-slow.Events(); open {
		t.Error("dropped connection queue should be closed")
	}
}

func TestHistory_BoundedOldestFirst(t *testing.T) {
	b := New(Config{HistorySize: 50})

	for i := 0; i < 60; i++ {
		b.Publish("horses", "updated", json.RawMessage(strconv.Itoa(i)))
	}

	events := b.History("horses", 100)
	if len(events) != 50 {
		t.Fatalf("history length = %d, want 50", len(events))
	}
	if string(events[0].Payload) != "10" {
		t.Errorf("oldest retained payload = %s, want 10", events[0].Payload)
	}
	if string(events[49].Payload) != "59" {
		t.Errorf("newest retained payload = %s, want 59", events[49].Payload)
	}

	limited := b.History("horses", 5)
	if len(limited) != 5 {
		t.Fatalf("history(5) length = %d, want 5", len(limited))
	}
	if string(limited[0].Payload) != "55" {
		t.Errorf("history(5) oldest payload = %s, want 55", limited[0].Payload)
	}

	if got := b.History("no-such-channel", 10); len(got) != 0 {
		t.Errorf("unknown channel history length = %d, want 0", len(got))
	}
}

func TestHistory_NeverExceedsLimit(t *testing.T) {
	b := New(Config{})

	for i := 0; i < 5; i++ {
		b.Publish("horses", "updated", json.RawMessage(strconv.Itoa(i)))
	}

	if got := b.History("horses", 0); len(got) != 0 {
		t.Fatalf("history(0) length = %d, want 0", len(got))
	}
	if got := b.History("horses", -1); len(got) != 0 {
		t.Fatalf("history(-1) length = %d, want 0", len(got))
	}
}

func TestPublishToOwner(t *testing.T) {
	b := New(Config{})
	conn := b.Register(9)
	recvEvent(t, conn)

	if _, err := b.PublishToOwner(9, "horse:created", json.RawMessage(`{"name":"Star"}`)); err != nil {
		t.Fatal(err)
	}

	e := recvEvent(t, conn)
	if e.Channel != "user:9" || e.Name != "horse:created" {
		t.Errorf("event = %s on %s, want horse:created on user:9", e.Name, e.Channel)
	}
}

// End-to-end: owner routing, global fan-out, disconnect, replay state.
func TestBroker_EndToEnd(t *testing.T) {
	b := New(Config{})
	a := b.Register(1)
	c := b.Register(2)
	recvEvent(t, a)
	recvEvent(t, c)

	b.Publish(OwnerChannel(1), "horse:updated", nil)
	if e := recvEvent(t, a); e.Name != "horse:updated" {
		t.Fatalf("A got %q, want horse:updated", e.Name)
	}
	assertNoEvent(t, c)

	b.Publish(GlobalChannel, "announcement", json.RawMessage(`"first"`))
	if e := recvEvent(t, a); e.Name != "announcement" {
		t.Fatalf("A got %q, want announcement", e.Name)
	}
	if e := recvEvent(t, c); e.Name != "announcement" {
		t.Fatalf("B got %q, want announcement", e.Name)
	}

	b.RemoveConnection(a.ID)

	b.Publish(GlobalChannel, "announcement", json.RawMessage(`"second"`))
	if e := recvEvent(t, c); string(e.Payload) != `"second"` {
		t.Fatalf("B payload = %s, want \"second\"", e.Payload)
	}

	history := b.History(GlobalChannel, 10)
	if len(history) != 2 {
		t.Fatalf("global history length = %d, want 2", len(history))
	}
	if string(history[0].Payload) != `"first"` || string(history[1].Payload) != `"second"` {
		t.Errorf("global history payloads = [%s %s], want [\"first\" \"second\"]",
			history[0].Payload, history[1].Payload)
	}
}

func TestSnapshot(t *testing.T) {
	b := New(Config{})
	conn := b.Register(3)
	recvEvent(t, conn)
	b.Publish(GlobalChannel, "ping", nil)

	s := b.Snapshot()
	if s.Connections != 1 {
		t.Errorf("connections = %d, want 1", s.Connections)
	}
	global := s.Channels[GlobalChannel]
	if global.Subscribers != 1 || global.Buffered != 1 {
		t.Errorf("global stats = %+v, want 1 subscriber, 1 buffered", global)
	}
}

func TestClose_DropsAllConnections(t *testing.T) {
	b := New(Config{})
	a := b.Register(1)
	b.Register(2)

	b.Close()
	if n := b.ConnectionCount(); n != 0 {
		t.Fatalf("connection count after close = %d, want 0", n)
	}

	recvEvent(t, a) // buffered connected event still drains
	if _, open := <-a.Events(); open {
		t.Error("queue should be closed after broker close")
	}
}

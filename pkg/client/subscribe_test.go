package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSubscribe_ParsesFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/stream" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("channels"); got != "horses" {
			t.Errorf("channels param = %q, want horses", got)
		}
		if got := r.URL.Query().Get("replay"); got != "5" {
			t.Errorf("replay param = %q, want 5", got)
		}
		if got := r.Header.Get("X-User-ID"); got != "7" {
			t.Errorf("X-User-ID = %q, want 7", got)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		fmt.Fprint(w, "event: system:connected\ndata: {\"channel\":\"user:7\",\"event\":\"system:connected\",\"payload\":{\"connection_id\":\"abc\"}}\n\n")
		fmt.Fprint(w, ": heartbeat\n\n")
		fmt.Fprint(w, "event: horses:created\ndata: {\"channel\":\"horses\",\"event\":\"horses:created\",\"payload\":{\"name\":\"Star\"}}\n\n")
		flusher.Flush()
		// Hold the stream open until the client disconnects.
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(WithServer(srv.URL), WithUserID(7))
	sub, err := c.Subscribe(context.Background(), SubscribeOptions{
		Channels: []string{"horses"},
		Replay:   5,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	recv := func() Event {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				t.Fatal("event stream closed early")
			}
			return evt
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for event")
		}
		return Event{}
	}

	first := recv()
	if first.Name != "system:connected" {
		t.Fatalf("first event = %q, want system:connected", first.Name)
	}

	// The heartbeat comment must be skipped, not surfaced.
	second := recv()
	if second.Name != "horses:created" || second.Channel != "horses" {
		t.Fatalf("second event = %s on %s, want horses:created on horses", second.Name, second.Channel)
	}
}

func TestSubscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"authentication required"}`))
	}))
	defer srv.Close()

	c := New(WithServer(srv.URL))
	_, err := c.Subscribe(context.Background(), SubscribeOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("error = %v, want 401 APIError", err)
	}
}

func TestSubscribe_CloseEndsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(WithServer(srv.URL))
	sub, err := c.Subscribe(context.Background(), SubscribeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	sub.Close()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after Close")
	}
}

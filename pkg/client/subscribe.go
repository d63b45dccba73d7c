package client

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// SubscribeOptions configures a streaming subscription.
type SubscribeOptions struct {
	// Channels to subscribe to beyond the defaults (global and the
	// caller's own user channel).
	Channels []string
	// Replay requests up to this many recent events per subscribed
	// channel before live delivery begins.
	Replay int
}

// Subscription is one live SSE stream. Events arrive on Events until the
// stream ends; afterwards Err reports why.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	body   io.ReadCloser

	mu     sync.Mutex
	err    error
	closed bool

	closeOnce sync.Once
}

// Subscribe opens the streaming endpoint and parses its frames. The
// returned subscription stays live until Close is called, ctx is cancelled
// or the server drops the connection.
func (c *Client) Subscribe(ctx context.Context, opts SubscribeOptions) (*Subscription, error) {
	q := url.Values{}
	if len(opts.Channels) > 0 {
		q.Set("channels", strings.Join(opts.Channels, ","))
	}
	if opts.Replay > 0 {
		q.Set("replay", strconv.Itoa(opts.Replay))
	}
	path := "/api/v1/stream"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(ctx, "GET", path, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, &ConnectionError{Err: err}
	}
	if resp.StatusCode != 200 {
		defer resp.Body.Close()
		cancel()
		return nil, parseError(resp)
	}

	sub := &Subscription{
		events: make(chan Event, 64),
		cancel: cancel,
		body:   resp.Body,
	}
	go sub.read()
	return sub, nil
}

// Events returns the stream of received events. Closed when the
// subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err reports why the stream ended, nil for a clean Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close terminates the subscription.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
		s.body.Close()
	})
}

// read parses text/event-stream framing: an `event:` line, a `data:` line,
// a blank line. Comment lines starting with `:` are heartbeats and are
// skipped.
func (s *Subscription) read() {
	defer close(s.events)
	defer s.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data != "" {
				var evt Event
				if err := json.Unmarshal([]byte(data), &evt); err == nil {
					s.events <- evt
				}
				data = ""
			}
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		// `event:` lines duplicate the name inside the data JSON and
		// `:` comment lines are keep-alives; both need no handling.
	}

	if err := scanner.Err(); err != nil {
		s.mu.Lock()
		if !s.closed {
			s.err = err
		}
		s.mu.Unlock()
	}
}

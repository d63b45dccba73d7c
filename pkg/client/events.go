package client

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Event is one published fact received from or sent to the server.
type Event struct {
	Channel   string          `json:"channel"`
	Name      string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EmitRequest publishes a `<module>:<action>` event.
type EmitRequest struct {
	Module  string          `json:"module"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
	OwnerID *int64          `json:"owner_id,omitempty"`
}

// EmitResponse describes the published event.
type EmitResponse struct {
	Channel   string    `json:"channel"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Emit publishes a module event.
func (c *Client) Emit(ctx context.Context, req EmitRequest) (*EmitResponse, error) {
	httpReq, err := c.newRequest(ctx, "POST", "/api/v1/emit", req)
	if err != nil {
		return nil, err
	}
	var resp EmitResponse
	if err := c.doJSON(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EmitGlobal publishes to the broadcast channel.
func (c *Client) EmitGlobal(ctx context.Context, event string, payload json.RawMessage) (*EmitResponse, error) {
	body := map[string]any{"event": event, "payload": payload}
	httpReq, err := c.newRequest(ctx, "POST", "/api/v1/emit/global", body)
	if err != nil {
		return nil, err
	}
	var resp EmitResponse
	if err := c.doJSON(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns up to limit most recent events on a channel, oldest
// first.
func (c *Client) History(ctx context.Context, channel string, limit int) ([]Event, error) {
	path := "/api/v1/history/" + channel
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	req, err := c.newRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Events []Event `json:"events"`
	}
	if err := c.doJSON(req, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// StatsResponse is the admin realtime statistics snapshot.
type StatsResponse struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	Realtime      struct {
		Connections int `json:"connections"`
		Channels    map[string]struct {
			Subscribers int `json:"subscribers"`
			Buffered    int `json:"buffered"`
		} `json:"channels"`
	} `json:"realtime"`
}

// Stats fetches realtime usage statistics.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	req, err := c.newRequest(ctx, "GET", "/api/v1/stats/realtime", nil)
	if err != nil {
		return nil, err
	}
	var resp StatsResponse
	if err := c.doJSON(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

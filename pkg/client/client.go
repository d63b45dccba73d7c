// Package client is the Go API client for a stablecast server. It is used
// by the stablecast CLI and by services that publish or consume domain
// events over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultServer  = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second
)

// Client is the stablecast API client.
type Client struct {
	server     string
	userID     int64
	hasUserID  bool
	httpClient *http.Client
	// streamClient has no timeout; SSE connections are long-lived.
	streamClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// New creates a new stablecast client.
func New(opts ...Option) *Client {
	c := &Client{
		server:       DefaultServer,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		streamClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithServer sets a custom server URL.
func WithServer(server string) Option {
	return func(c *Client) {
		if server != "" {
			c.server = server
		}
	}
}

// WithUserID sets the subject identity sent with every request. In
// production the upstream auth gateway injects this header; direct use is
// for tooling and tests.
func WithUserID(id int64) Option {
	return func(c *Client) {
		c.userID = id
		c.hasUserID = true
	}
}

// WithHTTPClient sets a custom HTTP client for non-streaming requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout for non-streaming requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// ServerURL returns the configured server URL.
func (c *Client) ServerURL() string {
	return c.server
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.hasUserID {
		req.Header.Set("X-User-ID", strconv.FormatInt(c.userID, 10))
	}
	return req, nil
}

// doJSON executes a request and decodes a 2xx response into out.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

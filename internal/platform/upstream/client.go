// Package upstream is the HTTP client for the legacy clinic API. It decodes
// response bodies into untyped JSON values and leaves envelope normalization
// to internal/envelope; the client itself never interprets payload shape.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klinika/klinika/internal/envelope"
)

// Client wraps interactions with the legacy backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	observe    func(outcome string)
}

// Option mutates a Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver reports each call outcome ("ok" or "error") to fn.
func WithObserver(fn func(outcome string)) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient constructs a new client.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks if the upstream API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", "", nil)
	return err
}

// Get issues a GET for the given tenant and decodes the body.
func (c *Client) Get(ctx context.Context, tenantID, path string, query url.Values) (any, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, tenantID, nil)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, tenantID, path string, body any) (any, error) {
	return c.do(ctx, http.MethodPost, path, tenantID, body)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, tenantID, path string, body any) (any, error) {
	return c.do(ctx, http.MethodPut, path, tenantID, body)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, tenantID, path string) (any, error) {
	return c.do(ctx, http.MethodDelete, path, tenantID, nil)
}

func (c *Client) do(ctx context.Context, method, path, tenantID string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("upstream: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observed("error")
		return nil, fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}

	var decoded any
	if len(bytes.TrimSpace(raw)) > 0 {
		// Undecodable bodies on success responses are treated as absent
		// payloads so callers fall back through the normalizer.
		_ = json.Unmarshal(raw, &decoded)
	}

	if resp.StatusCode >= 400 {
		c.observed("error")
		return nil, &Error{
			Status:  resp.StatusCode,
			Message: errorMessage(decoded, resp.StatusCode),
			Payload: decoded,
		}
	}
	c.observed("ok")
	return decoded, nil
}

func (c *Client) observed(outcome string) {
	if c.observe != nil {
		c.observe(outcome)
	}
}

func errorMessage(decoded any, status int) string {
	if msg := envelope.ErrorMessage(decoded); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// Package upstream is the HTTP client for the backend payments API. Each call
// is one stateless round-trip: no retries, no backoff, no idempotency tokens.
// Timeouts and cancellation belong to the caller's context and the transport.
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

	"github.com/google/uuid"
)

// Error is a non-2xx upstream response. Message is extracted from the JSON
// error body when possible, falling back to the HTTP reason phrase, so callers
// never see raw transport internals.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Query assembles list-endpoint parameters from optional filters. Absent or
// blank filters are omitted, never sent as empty strings.
func Query(filters map[string]string) url.Values {
	values := url.Values{}
	for key, value := range filters {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			values.Set(key, trimmed)
		}
	}
	return values
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, token string, out any) error {
	return c.do(ctx, http.MethodGet, path, query, token, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, token string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, token, body, out)
}

func (c *Client) Put(ctx context.Context, path string, token string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, token, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, token string) error {
	return c.do(ctx, http.MethodDelete, path, nil, token, nil, nil)
}

// Ping reports whether the upstream answers HTTP at all. Any response counts,
// including 4xx/5xx: reachability, not health, is what readiness needs here.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build upstream ping: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

// decodeError extracts a human-readable message from a failed response: the
// JSON body's message or error field, else the HTTP reason phrase.
func decodeError(resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(raw) > 0 {
		var body map[string]any
		if json.Unmarshal(raw, &body) == nil {
			if m, ok := body["message"].(string); ok && strings.TrimSpace(m) != "" {
				message = m
			} else if m, ok := body["error"].(string); ok && strings.TrimSpace(m) != "" {
				message = m
			}
		}
	}

	return &Error{StatusCode: resp.StatusCode, Message: message}
}

// Package client is the HTTP adapter for the forwarding API. It
// normalizes JSON parse failures, non-2xx statuses and ok:false bodies
// into typed errors carrying the status code and raw payload.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/haltman-io/aliasctl/internal/api"
)

// Client calls the forwarding API. The zero value is not usable; use New.
type Client struct {
	BaseURL string
	// APIKey, when set, is sent as x-api-key on DNS status checks. The
	// key is opaque to the client.
	APIKey string

	httpClient *http.Client
}

// New creates a client for the API at baseURL. apiKey may be empty.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

// SetHTTPClient overrides the underlying HTTP client (tests, custom
// transports).
func (c *Client) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// Error is a failed API call: a non-2xx status, an ok:false body, or
// both. Transport-level failures are returned as-is, not as *Error.
type Error struct {
	Status   int
	Code     string
	Message  string
	Envelope *api.ErrorEnvelope
	Body     []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("request failed (%d)", e.Status)
}

// Retryable reports whether err is worth retrying for an idempotent
// request: transport failures always, API errors only for HTTP 429 and
// 5xx. Context cancellation is never retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	return true
}

func (c *Client) get(ctx context.Context, path string, query url.Values, headers map[string]string, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	env := parseEnvelope(body)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || (env != nil && env.OK != nil && !*env.OK) {
		return newError(resp.StatusCode, env, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseEnvelope(body []byte) *api.ErrorEnvelope {
	if len(body) == 0 {
		return nil
	}
	var env api.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	return &env
}

func newError(status int, env *api.ErrorEnvelope, body []byte) *Error {
	e := &Error{Status: status, Envelope: env, Body: body}
	if env != nil {
		e.Code = env.Error
		switch {
		case strings.TrimSpace(env.Message) != "":
			e.Message = env.Message
		case strings.TrimSpace(env.Error) != "":
			e.Message = env.Error
		case strings.TrimSpace(env.Detail) != "":
			e.Message = env.Detail
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed (%d)", status)
	}
	return e
}

// Package supabase talks to the hosted table store through its PostgREST
// endpoint (/rest/v1).
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"animehub/app/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client issues PostgREST requests. It is safe for concurrent use.
type Client struct {
	rest *resty.Client
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.rest.SetTransport(rt) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rest.SetTimeout(d) }
}

// NewClient creates a client for the project at baseURL
// (https://<ref>.supabase.co) authenticated with apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	rest := resty.New()
	rest.SetBaseURL(strings.TrimRight(baseURL, "/") + "/rest/v1")
	rest.SetTimeout(10 * time.Second)
	rest.SetHeader("apikey", apiKey)
	rest.SetHeader("Accept", "application/json")
	rest.SetAuthToken(apiKey)

	rest.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Log.Debug("Supabase response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", resp.Time()))
		return nil
	})

	c := &Client{rest: rest}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase: status %d", e.Status)
}

// do sends one request to table with the given filters. A non-nil out
// receives the decoded JSON body.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, prefer string, out any) error {
	serr := &StatusError{}
	req := c.rest.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		SetError(serr)
	if body != nil {
		req.SetBody(body)
	}
	if prefer != "" {
		req.SetHeader("Prefer", prefer)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, "/"+table)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsSuccess() {
		serr.Status = resp.StatusCode()
		return serr
	}
	return nil
}

func eq(value string) string {
	return "eq." + value
}

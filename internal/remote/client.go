// Package remote is the HTTP contract to the cities collection resource.
//
// Endpoints, relative to the base URL:
//
//	GET    /cities       list every record, in display order
//	GET    /cities/{id}  fetch one record; 404 is an error
//	POST   /cities/      create; the body is a record without id
//	DELETE /cities/{id}  delete; the body is ignored
//
// Requests are never retried here. Callers decide what a failure means.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/triplog/internal/metrics"
	"github.com/roach88/triplog/internal/record"
)

// DefaultBaseURL is where the development collection server listens.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// Collection is the set of remote operations the state machine depends on.
// Implemented by Client; tests substitute fakes.
type Collection interface {
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id record.ID) (record.Record, error)
	Create(ctx context.Context, candidate record.Record) (record.Record, error)
	Delete(ctx context.Context, id record.ID) error
}

// Client talks to a /cities resource over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL (no trailing slash).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List fetches the full collection.
func (c *Client) List(ctx context.Context) ([]record.Record, error) {
	var out []record.Record
	if err := c.do(ctx, "list", http.MethodGet, "/cities", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []record.Record{}
	}
	return out, nil
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, id record.ID) (record.Record, error) {
	var out record.Record
	if err := c.do(ctx, "get", http.MethodGet, "/cities/"+url.PathEscape(id), nil, &out); err != nil {
		return record.Record{}, err
	}
	return out, nil
}

// Create posts a candidate and returns the record as stored by the server,
// including its assigned id. Any id on the candidate is dropped.
func (c *Client) Create(ctx context.Context, candidate record.Record) (record.Record, error) {
	candidate.ID = ""
	body, err := json.Marshal(candidate)
	if err != nil {
		return record.Record{}, fmt.Errorf("create: encode record: %w", err)
	}

	var out record.Record
	if err := c.do(ctx, "create", http.MethodPost, "/cities/", body, &out); err != nil {
		return record.Record{}, err
	}
	if out.ID == "" {
		metrics.RemoteFailuresTotal.WithLabelValues("create").Inc()
		return record.Record{}, &TransportError{
			Op:     "create",
			Method: http.MethodPost,
			URL:    c.baseURL + "/cities/",
			Err:    ErrMissingID,
		}
	}
	return out, nil
}

// Delete removes a record. Only the status code is inspected.
func (c *Client) Delete(ctx context.Context, id record.ID) error {
	return c.do(ctx, "delete", http.MethodDelete, "/cities/"+url.PathEscape(id), nil, nil)
}

// do sends one request and decodes a JSON response into out (when non-nil).
// Every failure is reported as a *TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	u := c.baseURL + path
	fail := func(status int, err error) error {
		metrics.RemoteFailuresTotal.WithLabelValues(op).Inc()
		c.logger.Debug("remote request failed", "op", op, "method", method, "url", u, "status", status, "error", err)
		return &TransportError{Op: op, Method: method, URL: u, StatusCode: status, Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	metrics.RemoteRequestsTotal.WithLabelValues(op).Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	dur := time.Since(start).Milliseconds()
	metrics.RemoteDurationMs.WithLabelValues(op).Observe(float64(dur))
	c.logger.Debug("remote request", "op", op, "method", method, "url", u, "status", resp.StatusCode, "duration_ms", dur)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fail(resp.StatusCode, nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

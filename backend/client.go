package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTimeout = 60 * time.Second

// RequestRecord describes one finished round trip. Status is 0 when the
// request never got an answer.
type RequestRecord struct {
	ID      string
	Method  string
	Path    string
	Status  int
	Metrics *NetworkMetrics
	Err     error
}

type Client struct {
	baseURL  string
	http     *TracedClient
	timeout  time.Duration
	observer func(RequestRecord)
}

type Option func(*Client)

// WithTimeout bounds each request. Zero disables the bound and leaves only
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithObserver(fn func(RequestRecord)) Option {
	return func(c *Client) { c.observer = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = NewTracedClient(hc) }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewTracedClient(nil)
	}
	return c
}

// Warm primes the connection pool so the first spoken turn does not pay
// for connection setup.
func (c *Client) Warm(ctx context.Context) time.Duration {
	return c.http.Warm(ctx, c.baseURL+"/")
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	rec := RequestRecord{ID: uuid.NewString(), Method: method, Path: path}
	req.Header.Set("X-Request-ID", rec.ID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		rec.Err = fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
		c.observe(rec)
		return rec.Err
	}
	rec.Status = resp.StatusCode
	rec.Metrics = resp.Metrics

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rec.Err = apiError(method, path, resp)
		c.observe(rec)
		return rec.Err
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			rec.Err = fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	c.observe(rec)
	return rec.Err
}

func (c *Client) observe(rec RequestRecord) {
	if c.observer != nil {
		c.observer(rec)
	}
}

func apiError(method, path string, resp *TracedResponse) *APIError {
	e := &APIError{Method: method, Path: path, Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(resp.Body, &payload) == nil && payload.Error != "" {
		e.Message = payload.Error
	} else {
		e.Message = strings.TrimSpace(string(resp.Body))
		if len(e.Message) > 200 {
			e.Message = e.Message[:200]
		}
	}
	return e
}

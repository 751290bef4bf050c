// Package apiclient is the JSON-over-HTTP transport shared by the hosted
// embedding and summariser adapters. It owns request pacing, retries on
// throttling and provider error decoding so each adapter only deals with
// its own request and response shapes.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/doclens/internal/logger"
)

// DefaultRetryDelay is the first backoff step; each retry doubles it.
const DefaultRetryDelay = 500 * time.Millisecond

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 512

// Config describes one provider endpoint.
type Config struct {
	// Provider prefixes every error, e.g. "openai".
	Provider string

	BaseURL string
	Timeout time.Duration

	// Headers are sent with every request (authorisation and the like).
	Headers map[string]string

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// MaxRetries is how often a throttled or unavailable request is retried.
	MaxRetries int

	// RetryDelay overrides DefaultRetryDelay.
	RetryDelay time.Duration
}

// Client sends JSON requests to a single provider.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	provider   string
	baseURL    string
	headers    map[string]string
	maxRetries int
	retryDelay time.Duration
}

// New creates a Client. BaseURL is used as given, minus any trailing slash.
func New(cfg Config) *Client {
	c := &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		provider:   cfg.Provider,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    cfg.Headers,
		maxRetries: max(cfg.MaxRetries, 0),
		retryDelay: cfg.RetryDelay,
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// BaseURL returns the endpoint root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Paced reports whether outgoing requests are rate limited.
func (c *Client) Paced() bool {
	return c.limiter != nil
}

// PostJSON sends in as a JSON body to path and decodes the reply into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}

	var body []byte
	for attempt := 0; ; attempt++ {
		body, err = c.do(ctx, http.MethodPost, path, payload)
		if err == nil {
			break
		}
		var apiErr *APIError
		if attempt >= c.maxRetries || !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return err
		}
		delay := c.retryDelay << attempt
		logger.Debug("%s: %s returned %d, retrying in %s", c.provider, path, apiErr.StatusCode, delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", c.provider, ctx.Err())
		case <-time.After(delay):
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

// Get issues a GET to path and discards the body. Used for reachability checks.
func (c *Client) Get(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodGet, path, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit: %w", c.provider, err)
		}
	}

	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: send request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response (status %d): %w", c.provider, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(c.provider, resp.StatusCode, body)
	}
	return body, nil
}

// Package httpclient provides the shared HTTP plumbing for API-backed
// provider adapters: a client with per-attempt timeouts and retry with
// exponential backoff on retryable statuses.
//
// Retrying here is deliberate: the manager never retries the same provider
// within one request, so backoff against a single flaky upstream lives in
// the adapter's own transport.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

// Config configures the client.
type Config struct {
	Timeout           time.Duration
	MaxRetries        int
	BaseRetryDelay    time.Duration
	MaxRetryDelay     time.Duration
	BackoffMultiplier float64
	UserAgent         string
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BaseRetryDelay == 0 {
		c.BaseRetryDelay = 500 * time.Millisecond
	}
	if c.MaxRetryDelay == 0 {
		c.MaxRetryDelay = 10 * time.Second
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2.0
	}
	if c.UserAgent == "" {
		c.UserAgent = "orchestrator-kit/1.0"
	}
	return c
}

// Client is a retrying HTTP client for provider adapters.
type Client struct {
	client *http.Client
	cfg    Config
}

// New creates a client with the given configuration.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// RetryableStatus reports whether a response status is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Do sends the request, retrying retryable failures with exponential
// backoff until MaxRetries is exhausted or ctx is done. The body is
// replayed from the given bytes on each attempt.
func (c *Client) Do(ctx context.Context, method, url string, headers http.Header, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		for key, values := range headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if RetryableStatus(resp.StatusCode) && attempt < c.cfg.MaxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

// backoff returns the delay before the given attempt, capped at
// MaxRetryDelay.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseRetryDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.cfg.BackoffMultiplier)
		if delay >= c.cfg.MaxRetryDelay {
			return c.cfg.MaxRetryDelay
		}
	}
	if delay > c.cfg.MaxRetryDelay {
		delay = c.cfg.MaxRetryDelay
	}
	return delay
}

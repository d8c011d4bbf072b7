package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
	"github.com/unstuck-ai/helpnet-backend/pkg/retry"
)

// Config holds configuration for HTTP retry operations.
type Config struct {
	RetryConfig     *retry.Config
	Timeout         time.Duration
	IdleConnTimeout time.Duration
	MaxResponseSize int64 // max bytes read from error bodies
}

// DefaultConfig returns default configuration for HTTP retry operations.
func DefaultConfig() *Config {
	return &Config{
		RetryConfig:     retry.DefaultConfig(),
		Timeout:         10 * time.Second,
		IdleConnTimeout: 30 * time.Second,
		MaxResponseSize: 4096,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.IdleConnTimeout <= 0 {
		return fmt.Errorf("idleConnTimeout must be positive")
	}
	if c.MaxResponseSize < 0 {
		return fmt.Errorf("maxResponseSize must be >= 0")
	}
	return nil
}

// HTTPError represents an HTTP-specific error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client is a wrapper around http.Client that includes retry logic.
type Client struct {
	client *http.Client
	config *Config
	logger logging.Logger
}

// NewClient creates a new HTTP client with retry capabilities.
func NewClient(cfg *Config, logger logging.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid HTTP retry config: %w", err)
	}

	if cfg.RetryConfig.ShouldRetry == nil {
		cfg.RetryConfig.ShouldRetry = func(err error, attempt int) bool {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
			}
			// Network errors are assumed retryable.
			return true
		}
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			IdleConnTimeout: cfg.IdleConnTimeout,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout / 2,
				KeepAlive: cfg.IdleConnTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   cfg.Timeout / 2,
			ResponseHeaderTimeout: cfg.Timeout / 2,
		},
	}

	return &Client{client: client, config: cfg, logger: logger}, nil
}

// DoWithRetry performs an HTTP request with retry logic. The caller is
// responsible for closing the response body.
func (c *Client) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.GetBody == nil && req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading request body for retry: %w", err)
		}
		if err := req.Body.Close(); err != nil {
			c.logger.Warnf("Failed to close request body: %v", err)
		}
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	operation := func() (*http.Response, error) {
		reqClone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to get request body: %w", err)
			}
			reqClone.Body = body
		}

		resp, err := c.client.Do(reqClone)
		if err != nil {
			return nil, err
		}

		// Surface retryable status codes as errors so the retry
		// predicate can decide.
		if resp.StatusCode >= 500 || resp.StatusCode == 429 {
			bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize))
			if err := resp.Body.Close(); err != nil {
				c.logger.Warnf("Failed to close response body: %v", err)
			}
			return nil, &HTTPError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("received retryable status code, body: %q", truncate(string(bodyBytes), 200)),
			}
		}

		return resp, nil
	}

	return retry.Retry(ctx, operation, c.config.RetryConfig, c.logger)
}

// Get performs a GET request with retry logic.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.DoWithRetry(ctx, req)
}

// Post performs a POST request with retry logic.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.DoWithRetry(ctx, req)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Close closes idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// Timeout returns the configured request timeout.
func (c *Client) Timeout() time.Duration {
	return c.config.Timeout
}

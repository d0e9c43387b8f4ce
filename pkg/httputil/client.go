package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/stockcast/backend/pkg/logger"
)

// DefaultUserAgent is sent when the caller sets none (upstreams reject empty agents)
const DefaultUserAgent = "Mozilla/5.0 (compatible; stockcast/1.0)"

// Client is an HTTP client wrapper with rate limiting, optional retry and logging
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
	headers     http.Header
	observer    Observer
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// Observer is notified after every request (metrics)
type Observer func(host string, status int, d time.Duration)

// StatusError is returned by CheckStatus for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// New creates a new HTTP client. Retry is off by default.
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // Default timeout
		},
		logger: log,
		retryConfig: RetryConfig{
			MaxRetries:   0,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Enabled:      false,
		},
		headers: http.Header{"User-Agent": []string{DefaultUserAgent}},
	}
}

// NewWithTimeout creates a client with custom timeout
func NewWithTimeout(log *logger.Logger, timeout time.Duration) *Client {
	client := New(log)
	client.httpClient.Timeout = timeout
	return client
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = maxRetries > 0
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimit throttles outgoing requests to rps (token bucket, burst 1 minimum)
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	return c
}

// WithHeader sets a header on every request
func (c *Client) WithHeader(key, value string) *Client {
	c.headers.Set(key, value)
	return c
}

// WithObserver registers a per-request callback
func (c *Client) WithObserver(obs Observer) *Client {
	c.observer = obs
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.do(req)
}

// GetBody performs a GET request and returns the body of a 2xx response
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// CheckStatus returns a *StatusError for non-2xx responses
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	se := &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	if resp.Request != nil {
		se.URL = resp.Request.URL.String()
	}
	return se
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// do executes the request with rate limiting, retry and logging
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for key, values := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header[key] = values
		}
	}

	startTime := time.Now()
	url := req.URL.String()
	method := req.Method

	// Check rate limit
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	// Log request
	c.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	}).Debug("HTTP request started")

	// Execute with retry
	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req)
	} else {
		resp, err = c.httpClient.Do(req)
	}

	// Calculate duration
	duration := time.Since(startTime)

	// Log response
	if err != nil {
		c.observe(req, 0, duration)
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration,
			"error":    err.Error(),
		}).Error("HTTP request failed")
		return nil, err
	}

	c.observe(req, resp.StatusCode, duration)
	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

func (c *Client) observe(req *http.Request, status int, d time.Duration) {
	if c.observer != nil {
		c.observer(req.URL.Host, status, d)
	}
}

// doWithRetry executes the request with exponential backoff retry
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		resp, err = c.httpClient.Do(req)

		// Success
		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}

		// Last attempt - return error
		if attempt == c.retryConfig.MaxRetries {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"url":     req.URL.String(),
		}).Warn("Retrying HTTP request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}

		// Exponential backoff
		delay = min(delay*2, c.retryConfig.MaxDelay)
	}

	return resp, err
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == 429
}

// Package httpclient sends requests to external backends with bounded
// exponential backoff and classifies failures into apperror kinds.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"audiosummary/internal/apperror"
	"audiosummary/internal/performance"
)

const (
	defaultMaxRetries    = 3
	defaultBaseBackoffMs = 500
	defaultTimeout       = 300 * time.Second
	defaultMaxBodyBytes  = 32 * 1024 * 1024
	errorSnippetBytes    = 512
)

// ErrBodyTooLarge is wrapped by the error returned when a response exceeds MaxBodyBytes
var ErrBodyTooLarge = errors.New("response body too large")

// Options tunes retry and response handling
type Options struct {
	MaxRetries    int
	BaseBackoffMs int
	Timeout       time.Duration
	MaxBodyBytes  int64
	Monitor       *performance.PerformanceMonitor
}

// Client performs requests against one named backend
type Client struct {
	backend       string
	client        *http.Client
	logger        *zap.Logger
	monitor       *performance.PerformanceMonitor
	maxRetries    int
	baseBackoffMs int
	maxBodyBytes  int64
}

// NewClient creates a Client with default retry settings
func NewClient(backend string) *Client {
	return NewClientWithConfig(backend, zap.NewNop(), Options{})
}

// NewClientWithLogger creates a Client with default retry settings and a custom logger
func NewClientWithLogger(backend string, logger *zap.Logger) *Client {
	return NewClientWithConfig(backend, logger, Options{})
}

// NewClientWithConfig creates a Client. Zero option values fall back to defaults.
func NewClientWithConfig(backend string, logger *zap.Logger, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BaseBackoffMs < 0 {
		opts.BaseBackoffMs = defaultBaseBackoffMs
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	return &Client{
		backend:       backend,
		client:        newHTTPClient(opts.Timeout),
		logger:        logger,
		monitor:       opts.Monitor,
		maxRetries:    opts.MaxRetries,
		baseBackoffMs: opts.BaseBackoffMs,
		maxBodyBytes:  opts.MaxBodyBytes,
	}
}

// newHTTPClient separates connection establishment timeouts from the overall
// request timeout, which has to cover slow transcription of long audio.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Backend returns the backend name used in errors and metrics
func (c *Client) Backend() string {
	return c.backend
}

// MaxRetries returns the number of attempts made per call
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// RequestFunc builds a fresh request for every attempt, since request
// bodies cannot be replayed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Do sends the request built by newRequest until it succeeds, fails with a
// non-retryable status, or attempts are exhausted. It returns the body of
// the first 2xx response.
func (c *Client) Do(ctx context.Context, op string, newRequest RequestFunc) ([]byte, error) {
	var timer *performance.CallTimer
	if c.monitor != nil {
		timer = c.monitor.StartCall(c.backend, 0)
	}

	body, err := c.doWithRetry(ctx, op, newRequest, timer)

	if c.monitor != nil {
		c.monitor.EndCall(timer, err)
	}
	return body, err
}

func (c *Client) doWithRetry(ctx context.Context, op string, newRequest RequestFunc, timer *performance.CallTimer) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, apperror.BackendUnavailable(op, c.backend, err)
		}

		req, err := newRequest(ctx)
		if err != nil {
			return nil, apperror.InvalidInput(op, "failed to create request: %v", err)
		}
		if timer != nil && attempt == 1 && req.ContentLength > 0 {
			timer.Bytes = req.ContentLength
		}

		c.logger.Debug("sending backend request",
			zap.String("backend", c.backend),
			zap.String("op", op),
			zap.String("url", req.URL.Redacted()),
			zap.Int("attempt", attempt))

		body, retry, err := c.attempt(op, req)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retry {
			c.logger.Error("backend request failed",
				zap.String("backend", c.backend),
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, err
		}

		c.logger.Warn("backend request attempt failed",
			zap.String("backend", c.backend),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(c.baseBackoffMs*(1<<(attempt-1))) * time.Millisecond
		c.logger.Info("waiting before retry",
			zap.String("backend", c.backend),
			zap.Duration("backoff", backoff),
			zap.Int("next_attempt", attempt+1))

		select {
		case <-ctx.Done():
			return nil, apperror.BackendUnavailable(op, c.backend,
				fmt.Errorf("retry cancelled: %w (last error: %v)", ctx.Err(), lastErr))
		case <-time.After(backoff):
		}
	}

	c.logger.Error("maximum retry attempts exceeded",
		zap.String("backend", c.backend),
		zap.String("op", op),
		zap.Int("max_retries", c.maxRetries))

	return nil, lastErr
}

// attempt performs one round trip and reports whether a failure is worth retrying
func (c *Client) attempt(op string, req *http.Request) ([]byte, bool, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		ctxErr := req.Context().Err()
		if ctxErr != nil {
			return nil, false, apperror.BackendUnavailable(op, c.backend, ctxErr)
		}
		return nil, true, apperror.BackendUnavailable(op, c.backend, fmt.Errorf("failed to reach backend: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetBytes))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		retry := apperror.ShouldRetryStatus(resp.StatusCode)
		if apperror.KindForStatus(resp.StatusCode) == apperror.KindInvalidInput {
			return nil, false, &apperror.Error{Kind: apperror.KindInvalidInput, Op: op, Backend: c.backend, Err: statusErr}
		}
		return nil, retry, apperror.BackendUnavailable(op, c.backend, statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, apperror.BackendUnavailable(op, c.backend, err)
		}
		return nil, true, apperror.BackendUnavailable(op, c.backend, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, false, apperror.MalformedResponse(op, c.backend, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, c.maxBodyBytes))
	}
	return body, false, nil
}

// PostJSON marshals payload, posts it to url and returns the response body
func (c *Client) PostJSON(ctx context.Context, op, url string, payload any, headers map[string]string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.InvalidInput(op, "failed to marshal request: %v", err)
	}

	return c.Do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

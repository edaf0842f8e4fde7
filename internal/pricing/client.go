package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"priceupload/config"
	"priceupload/logger"
)

// Endpoint paths relative to the API base URL.
const (
	TokenPath    = "/oauth2/v2.0/token"
	UploadPath   = "/product-prices"
	ValidatePath = "/validate-product-prices"
)

const maxErrorBody = 512

// Client talks to the remote pricing API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger replaces the global logger.
func WithLogger(log *logger.Log) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for cfg. Requests time out after cfg.Timeout and are
// paced by cfg.RateLimit when it is set.
func New(cfg config.APIConfig, opts ...Option) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		if cfg.RateLimit.BurstSize > 0 {
			burst = cfg.RateLimit.BurstSize
		}
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log.WithComponent("pricing_client").WithFields(logger.Fields{
		"base_url":   c.baseURL,
		"timeout":    cfg.Timeout.String(),
		"rate_limit": cfg.RateLimit.RequestsPerSecond,
	}).Debug("pricing client initialized")

	return c
}

// BaseURL returns the API base URL the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// httpError is returned by do for any non-2xx response.
type httpError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *httpError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error: %s", e.Status)
	}
	return fmt.Sprintf("HTTP error: %s: %s", e.Status, e.Body)
}

type request struct {
	method    string
	path      string
	body      interface{}
	prepare   func(*http.Request)
	operation string
}

// do sends req and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	log := c.log.WithComponent("pricing_client").WithFields(logger.Fields{
		"operation": req.operation,
		"path":      req.path,
	})

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.prepare != nil {
		req.prepare(httpReq)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("request was cancelled: %w", ctx.Err())
		default:
			return fmt.Errorf("failed to execute request: %w", err)
		}
	}
	defer resp.Body.Close()

	logger.LogPerformanceEntry(log, "pricing_client", "api_request", time.Since(start), logger.Fields{
		"request_id": requestID,
		"status":     resp.StatusCode,
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &httpError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(bytes.TrimSpace(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusOf(err error) int {
	if he, ok := err.(*httpError); ok {
		return he.StatusCode
	}
	return 0
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

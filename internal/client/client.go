// Package client talks to the signal backend's REST and websocket API.
package client

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/metrics"
)

// Default request settings.
const (
	DefaultTimeout = 12 * time.Second
	DefaultLimit   = 20
)

// Client provides access to the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limit      int
	portfolio  bool
	logger     *zap.Logger
	metrics    *metrics.Registry
}

// Option configures a Client.
type Option func(*Client)

// New creates a new REST API client. Portfolio resources are fetched unless
// disabled with WithPortfolio(false).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   DefaultTimeout,
		limit:     DefaultLimit,
		portfolio: true,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		transport := metrics.LoggingTransport(c.logger, http.DefaultTransport)
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: metrics.InstrumentTransport(c.metrics, transport),
		}
	}

	return c
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client. It is used as-is, without the
// logging and metrics transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLimit sets the signal limit used when a request does not carry one.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithPortfolio enables or disables the portfolio and trade resources.
func WithPortfolio(enabled bool) Option {
	return func(c *Client) {
		c.portfolio = enabled
	}
}

// WithMetrics records outbound request metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Client) {
		c.metrics = reg
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

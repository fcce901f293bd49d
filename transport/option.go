package transport

import (
	"net/http"

	"go.uber.org/zap"
)

// Option configures a source at construction.
type Option func(*config)

type config struct {
	headers    map[string]string
	log        *zap.Logger
	httpClient *http.Client
}

func newConfig(opts []Option) config {
	cfg := config{
		headers: make(map[string]string),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithAuthToken sets the Bearer token sent on every connection attempt.
func WithAuthToken(token string) Option {
	return func(c *config) {
		c.headers["Authorization"] = "Bearer " + token
	}
}

// WithHeader adds one header to every connection attempt.
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers[key] = value
	}
}

// WithLogger sets the logger for connection lifecycle diagnostics.
// Defaults to zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHTTPClient replaces the HTTP client used to hold the SSE stream open.
// The WebSocket source dials its own connection and ignores it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

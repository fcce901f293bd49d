package resonance

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/resonancehq/resonance-go/transport"
)

// Option configures a Client at construction.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL    string
	log        *zap.Logger
	helpers    *HelperRegistry
	source     transport.Source
	httpClient *http.Client
	websocket  bool
}

// WithBaseURL points the client at a non-default deployment. A trailing
// slash is stripped before the stream path is appended.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithLogger sets the logger for background diagnostics: sync application,
// connection lifecycle, render fallbacks. Defaults to zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(c *clientConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHelpers scopes template helpers to this client instead of the shared
// DefaultHelpers registry.
func WithHelpers(h *HelperRegistry) Option {
	return func(c *clientConfig) {
		if h != nil {
			c.helpers = h
		}
	}
}

// WithHTTPClient replaces the HTTP client that holds the SSE stream open,
// for custom TLS or proxy setups. Ignored by the WebSocket transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithWebSocket switches the connection from SSE to the WebSocket endpoint.
// Ignored when WithSource is set.
func WithWebSocket() Option {
	return func(c *clientConfig) {
		c.websocket = true
	}
}

// WithSource replaces the realtime connection with a custom event source,
// such as a filesource catalog for offline development and tests. The
// client takes ownership and closes it on Close.
func WithSource(src transport.Source) Option {
	return func(c *clientConfig) {
		if src != nil {
			c.source = src
		}
	}
}

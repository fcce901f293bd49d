package resonance

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resonancehq/resonance-go/transport"
)

// Version is the SDK release, reported in the User-Agent of every
// connection.
const Version = "0.4.0"

// DefaultBaseURL is the production Resonance endpoint. Point WithBaseURL at
// a self-hosted deployment to override it.
const DefaultBaseURL = "https://api.resonancehq.com"

const (
	apiKeyPrefix = "rsn_"
	ssePath      = "/v1/stream"
	wsPath       = "/v1/stream/ws"
)

// Client mirrors the prompt catalog deployed for one API key into process
// memory and keeps the mirror current from pushed events. Create one with
// New and share it; all methods are safe for concurrent use.
//
// Render, RenderStruct, Find and FindOne block until the first full
// snapshot has been applied, bounded by their context. Close releases the
// connection; a mirror that reached readiness keeps serving reads
// afterwards.
type Client struct {
	id       string
	store    *promptStore
	coord    *syncCoordinator
	renderer *renderer
	source   transport.Source
	log      *zap.Logger

	closeOnce sync.Once
}

// New validates the configuration, starts the connection in the background
// and returns immediately; use WaitUntilReady to block for the first
// snapshot. The error paths are configuration errors only: an API key
// without the "rsn_" prefix or an unusable base URL. Connection trouble
// after construction is retried by the transport and never surfaces here.
func New(apiKey string, opts ...Option) (*Client, error) {
	if !strings.HasPrefix(apiKey, apiKeyPrefix) {
		return nil, ErrAPIKey
	}

	cfg := clientConfig{
		baseURL: DefaultBaseURL,
		log:     zap.NewNop(),
		helpers: DefaultHelpers,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.baseURL = strings.TrimSuffix(cfg.baseURL, "/")

	c := &Client{
		id:    uuid.NewString(),
		store: newPromptStore(),
		log:   cfg.log,
	}
	c.renderer = newRenderer(cfg.helpers, cfg.log)
	c.coord = newSyncCoordinator(c.store, cfg.log)

	source := cfg.source
	if source == nil {
		var err error
		if source, err = c.dial(apiKey, cfg); err != nil {
			return nil, err
		}
	}
	c.source = source

	go c.coord.run(source)
	c.log.Debug("client created",
		zap.String("client", c.id),
		zap.String("baseURL", cfg.baseURL))
	return c, nil
}

func (c *Client) dial(apiKey string, cfg clientConfig) (transport.Source, error) {
	opts := []transport.Option{
		transport.WithAuthToken(apiKey),
		transport.WithHeader("User-Agent", "resonance-go/"+Version),
		transport.WithHeader("X-Resonance-Client", c.id),
		transport.WithLogger(cfg.log),
	}
	if cfg.httpClient != nil {
		opts = append(opts, transport.WithHTTPClient(cfg.httpClient))
	}
	if cfg.websocket {
		return transport.NewWebSocket(wsBaseURL(cfg.baseURL)+wsPath, opts...)
	}
	return transport.NewSSE(cfg.baseURL+ssePath, opts...)
}

// wsBaseURL maps the HTTP base URL onto the matching WebSocket scheme.
func wsBaseURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}

// Render returns the content of the prompt with the given id, with vars
// bound into its template. Nil vars skips templating and returns the stored
// content verbatim; so does any template failure, so a rendered prompt is
// never lost to a bad variable. An unknown id renders to "". The error is
// non-nil only when the readiness wait ends early, with ctx.Err or
// ErrClosed.
func (c *Client) Render(ctx context.Context, id string, vars map[string]any) (string, error) {
	if err := c.coord.waitReady(ctx); err != nil {
		return "", err
	}
	p, ok := c.store.get(id)
	if !ok {
		c.log.Debug("render of unknown prompt", zap.String("id", id))
		return "", nil
	}
	return c.renderer.render(p.Content, vars), nil
}

// RenderStruct is Render with the variables taken from payload's
// `prompt`-tagged struct fields:
//
//	type Greeting struct {
//		Name string `prompt:"name"`
//	}
//	text, err := client.RenderStruct(ctx, "welcome", Greeting{Name: "Ada"})
//
// It returns ErrInvalidPayload when payload is not a struct or tags no
// fields.
func (c *Client) RenderStruct(ctx context.Context, id string, payload any) (string, error) {
	vars, err := structVars(payload)
	if err != nil {
		return "", err
	}
	return c.Render(ctx, id, vars)
}

// Find returns the prompts matching filter, sorted by id. The zero Filter
// matches the whole catalog.
func (c *Client) Find(ctx context.Context, filter Filter) ([]Prompt, error) {
	if err := c.coord.waitReady(ctx); err != nil {
		return nil, err
	}
	return c.store.find(filter), nil
}

// FindOne returns the first prompt matching filter in id order, reporting
// whether any matched. No match is not an error.
func (c *Client) FindOne(ctx context.Context, filter Filter) (Prompt, bool, error) {
	if err := c.coord.waitReady(ctx); err != nil {
		return Prompt{}, false, err
	}
	p, ok := c.store.findOne(filter)
	return p, ok, nil
}

// WaitUntilReady blocks until the first full snapshot has been applied, ctx
// ends, or the client is closed.
func (c *Client) WaitUntilReady(ctx context.Context) error {
	return c.coord.waitReady(ctx)
}

// Ready reports whether the first full snapshot has been applied, without
// blocking.
func (c *Client) Ready() bool {
	return c.coord.isReady()
}

// Close halts event processing and releases the connection. Once it
// returns, no further event mutates the mirror; reads keep serving the last
// synchronized catalog, while waiters still blocked on readiness receive
// ErrClosed. Close is idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.coord.halt()
		err = c.source.Close()
		c.log.Debug("client closed", zap.String("client", c.id))
	})
	return err
}

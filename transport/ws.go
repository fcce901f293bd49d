package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsEnvelope is the wire frame of the WebSocket stream: the same named
// events as SSE, one JSON object per message.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebSocketSource consumes the catalog stream over a WebSocket, for
// environments where proxies buffer or cut long-lived streaming responses.
// It dials in the background and redials with exponential backoff until
// closed.
type WebSocketSource struct {
	url    string
	header http.Header
	log    *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	events    chan Event
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

var _ Source = (*WebSocketSource)(nil)

// NewWebSocket starts consuming the stream at rawURL (ws or wss scheme).
func NewWebSocket(rawURL string, opts ...Option) (*WebSocketSource, error) {
	if err := validateURL(rawURL, "ws", "wss"); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)

	header := make(http.Header, len(cfg.headers))
	for k, v := range cfg.headers {
		header.Set(k, v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &WebSocketSource{
		url:    rawURL,
		header: header,
		log:    cfg.log,
		events: make(chan Event, eventBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

func (s *WebSocketSource) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	redial := backoff.NewExponentialBackOff()
	redial.MaxElapsedTime = 0
	redial.MaxInterval = 30 * time.Second

	for {
		if err := s.dial(ctx); err == nil {
			redial.Reset()
			s.read(ctx)
		} else if ctx.Err() == nil {
			s.log.Warn("websocket dial failed, redialing", zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-time.After(redial.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

// dial establishes the connection and publishes it so Close can interrupt a
// blocked read. When Close raced the handshake, the fresh connection is torn
// down here instead of being published.
func (s *WebSocketSource) dial(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return err
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return ctx.Err()
	}
	s.conn = conn
	s.mu.Unlock()

	s.log.Debug("websocket connected", zap.String("url", s.url))
	return nil
}

// read forwards envelopes until the connection drops or the source closes.
func (s *WebSocketSource) read(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	defer conn.Close()

	conn.SetReadLimit(maxEventSize)
	for {
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				s.log.Warn("websocket read failed, redialing", zap.Error(err))
			}
			return
		}
		if env.Event == "" {
			// Keepalive frame.
			continue
		}
		select {
		case s.events <- Event{Name: env.Event, Data: env.Data}:
		case <-ctx.Done():
			return
		}
	}
}

// Events returns the stream of named events in arrival order.
func (s *WebSocketSource) Events() <-chan Event { return s.events }

// Close stops the stream, interrupting a blocked read. It returns once the
// events channel has been closed and no further event can be delivered.
func (s *WebSocketSource) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
		<-s.done
	})
	return nil
}

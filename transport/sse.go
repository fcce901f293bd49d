package transport

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	backoffv1 "gopkg.in/cenkalti/backoff.v1"
)

// maxEventSize bounds a single SSE frame. Catalog snapshots are the largest
// events on the stream and stay well under this.
const maxEventSize = 1 << 20

// SSESource subscribes to the service's server-sent event stream. The
// subscription runs in a background goroutine from construction on and
// redials with exponential backoff until closed; a redial costs nothing to
// the consumer beyond the freshly pushed snapshot that follows it.
type SSESource struct {
	client *sse.Client
	log    *zap.Logger

	events    chan Event
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

var _ Source = (*SSESource)(nil)

// NewSSE connects to the event stream at rawURL (http or https scheme). The
// returned source is already subscribing; events appear on Events as they
// arrive.
func NewSSE(rawURL string, opts ...Option) (*SSESource, error) {
	if err := validateURL(rawURL, "http", "https"); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)

	client := sse.NewClient(rawURL, sse.ClientMaxBufferSize(maxEventSize))
	for k, v := range cfg.headers {
		client.Headers[k] = v
	}
	if cfg.httpClient != nil {
		client.Connection = cfg.httpClient
	}
	// Redialing is handled by the loop below, where it can be interrupted
	// by Close. The client's own retry never engages.
	client.ReconnectStrategy = &backoffv1.StopBackOff{}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SSESource{
		client: client,
		log:    cfg.log,
		events: make(chan Event, eventBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	redial := backoff.NewExponentialBackOff()
	redial.MaxElapsedTime = 0
	redial.MaxInterval = 30 * time.Second
	client.OnConnect(func(*sse.Client) {
		redial.Reset()
		s.log.Debug("event stream connected", zap.String("url", rawURL))
	})

	go s.run(ctx, redial)
	return s, nil
}

func (s *SSESource) run(ctx context.Context, redial *backoff.ExponentialBackOff) {
	defer close(s.done)
	defer close(s.events)

	handler := func(msg *sse.Event) {
		name := string(msg.Event)
		if name == "" {
			// Keepalive or unnamed frame.
			return
		}
		select {
		case s.events <- Event{Name: name, Data: msg.Data}:
		case <-ctx.Done():
		}
	}

	for {
		err := s.client.SubscribeRawWithContext(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warn("event stream disconnected, redialing", zap.Error(err))
		}
		select {
		case <-time.After(redial.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

// Events returns the stream of named events in arrival order.
func (s *SSESource) Events() <-chan Event { return s.events }

// Close stops the subscription. It returns once the events channel has been
// closed and no further event can be delivered.
func (s *SSESource) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

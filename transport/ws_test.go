package transport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func wsTestURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// holdOpen reads until the peer hangs up, keeping the connection alive.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestNewWebSocket_InvalidURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "https scheme", url: "https://api.resonancehq.com/v1/stream/ws"},
		{name: "no scheme", url: "api.resonancehq.com/v1/stream/ws"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewWebSocket(tt.url)
			require.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestWebSocketSource_DeliversEvents(t *testing.T) {
	t.Parallel()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(wsEnvelope{Event: EventSync, Data: []byte(`{"prompts":[]}`)})
		_ = conn.WriteJSON(wsEnvelope{}) // keepalive, never surfaces
		_ = conn.WriteJSON(wsEnvelope{Event: EventPromptDeployed, Data: []byte(`{"id":"p1"}`)})
		holdOpen(conn)
	}))
	defer srv.Close()

	src, err := NewWebSocket(wsTestURL(srv), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer src.Close()

	ev := recvEvent(t, src.Events())
	assert.Equal(t, EventSync, ev.Name)
	assert.JSONEq(t, `{"prompts":[]}`, string(ev.Data))

	ev = recvEvent(t, src.Events())
	assert.Equal(t, EventPromptDeployed, ev.Name)
	assert.JSONEq(t, `{"id":"p1"}`, string(ev.Data))
}

func TestWebSocketSource_SendsConfiguredHeaders(t *testing.T) {
	t.Parallel()
	headers := make(chan http.Header, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case headers <- r.Header.Clone():
		default:
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		holdOpen(conn)
	}))
	defer srv.Close()

	src, err := NewWebSocket(wsTestURL(srv),
		WithAuthToken("rsn_abc"),
		WithHeader("X-Resonance-Client", "c-1"),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	defer src.Close()

	select {
	case h := <-headers:
		assert.Equal(t, "Bearer rsn_abc", h.Get("Authorization"))
		assert.Equal(t, "c-1", h.Get("X-Resonance-Client"))
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the connection")
	}
}

func TestWebSocketSource_RedialsAfterDrop(t *testing.T) {
	t.Parallel()
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := conns.Add(1)
		_ = conn.WriteJSON(wsEnvelope{Event: EventSync, Data: []byte(fmt.Sprintf(`{"conn":%d}`, n))})
		if n == 1 {
			return
		}
		holdOpen(conn)
	}))
	defer srv.Close()

	src, err := NewWebSocket(wsTestURL(srv), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer src.Close()

	first := recvEvent(t, src.Events())
	assert.JSONEq(t, `{"conn":1}`, string(first.Data))

	second := recvEvent(t, src.Events())
	assert.JSONEq(t, `{"conn":2}`, string(second.Data))
}

func TestWebSocketSource_CloseInterruptsBlockedRead(t *testing.T) {
	t.Parallel()
	connected := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		close(connected)
		holdOpen(conn)
	}))
	defer srv.Close()

	src, err := NewWebSocket(wsTestURL(srv), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("source never connected")
	}

	// The read loop is blocked with nothing to read; Close must still
	// return promptly.
	closed := make(chan error, 1)
	go func() { closed <- src.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung on a blocked read")
	}

	_, ok := <-src.Events()
	assert.False(t, ok, "events channel must close with the source")
}

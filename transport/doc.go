// Package transport carries named catalog events from the Resonance
// realtime service to a client.
//
// A Source is an ordered stream of events plus a Close. Connection
// management, authentication headers and reconnection live behind the
// interface; consumers only ever see events in arrival order. Two
// implementations are provided: SSESource over server-sent events (the
// default) and WebSocketSource for environments where proxies interfere
// with long-lived streaming responses.
package transport

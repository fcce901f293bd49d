package transport

import (
	"errors"
	"fmt"
	"net/url"
)

// Event names pushed by the realtime service.
const (
	// EventSync carries the complete set of currently deployed prompts.
	EventSync = "sync"
	// EventPromptDeployed carries one new or updated prompt record.
	EventPromptDeployed = "prompt:deployed"
	// EventPromptUndeployed carries the id of a prompt taken out of service.
	EventPromptUndeployed = "prompt:undeployed"
)

// ErrInvalidURL is returned at construction when a stream URL cannot be
// parsed or its scheme does not fit the source.
var ErrInvalidURL = errors.New("transport: invalid stream URL")

// Event is one named message from the service. Data holds the raw JSON body
// exactly as received; decoding is the consumer's business.
type Event struct {
	Name string
	Data []byte
}

// Source is an ordered stream of catalog events. Events returns the same
// channel on every call; the channel is closed when the source stops for
// good. Close is idempotent, releases the underlying connection and returns
// only after the events channel has been closed, so no event can be
// delivered afterwards.
type Source interface {
	Events() <-chan Event
	Close() error
}

// eventBuffer is the channel capacity between a connection reader and the
// consumer. A full buffer blocks the reader, preserving order instead of
// dropping events.
const eventBuffer = 64

func validateURL(rawURL string, schemes ...string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %q: scheme must be one of %v", ErrInvalidURL, rawURL, schemes)
}

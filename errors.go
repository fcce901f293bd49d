package resonance

import "errors"

// Sentinel errors for client construction and blocking operations.
// All use prefix "resonance:" for identification. Callers should use errors.Is.
var (
	// ErrAPIKey is returned by New before any transport activity when the API
	// key is empty or does not carry the "rsn_" prefix.
	ErrAPIKey = errors.New(`resonance: api key must be non-empty and start with "rsn_"`)
	// ErrClosed is returned from operations waiting on readiness after Close.
	// Reads that were already unblocked by a snapshot keep working on the
	// cached mirror.
	ErrClosed = errors.New("resonance: client is closed")
	// ErrHelper is returned by RegisterHelper for names that are not valid
	// template identifiers or functions with a shape text/template rejects.
	ErrHelper = errors.New("resonance: invalid helper")
	// ErrInvalidPayload is returned by RenderStruct when the payload is not a
	// struct or carries no `prompt` tags.
	ErrInvalidPayload = errors.New("resonance: payload struct is invalid or missing prompt tags")
)

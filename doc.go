// Package resonance is the Go SDK for the Resonance prompt catalog. It keeps
// a process-local mirror of the prompts deployed for an API key, synchronized
// through push events from the realtime service, so lookups and renders never
// pay a network round trip.
//
// A Client becomes ready once the first full catalog snapshot has been
// applied; Render, Find and FindOne block on that gate (bounded by their
// context) and then read the local mirror. Rendering uses text/template with
// a shared helper registry and falls back to the raw prompt content on any
// template failure.
package resonance

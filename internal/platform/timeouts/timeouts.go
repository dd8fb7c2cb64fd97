// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values keeps the HTTP surface and the auth collaborator
// calls consistent and makes the durations discoverable.
package timeouts

import "time"

// AuthRequest caps the time allowed for one call to the auth introspection
// endpoint.
const AuthRequest = 3 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// TranscriptSave caps one transcript write to the message log store.
const TranscriptSave = 10 * time.Second

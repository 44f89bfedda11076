// Package duration provides canonical time constants for reconsuite.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.ShutdownGrace)
//	cfg.Timeout = duration.BackendRequest
package duration

import "time"

// ============================================================================
// BACKEND REQUESTS
// ============================================================================

const (
	// BackendRequest bounds one category call, connection to last byte (2min).
	// The backend probes ports and paths synchronously, so replies are slow.
	BackendRequest = 2 * time.Minute

	// BackendDial bounds TCP connection setup to the backend (10s)
	BackendDial = 10 * time.Second

	// BackendTLSHandshake bounds the TLS handshake with the backend (10s)
	BackendTLSHandshake = 10 * time.Second

	// IdleConn is how long pooled backend connections stay open (90s)
	IdleConn = 90 * time.Second
)

// ============================================================================
// RETRY BACKOFF
// ============================================================================

const (
	// RetryInit is the delay before the first retry (500ms)
	RetryInit = 500 * time.Millisecond

	// RetryMax caps any single retry delay (10s)
	RetryMax = 10 * time.Second
)

// ============================================================================
// SERVER / SHUTDOWN
// ============================================================================

const (
	// ServerRead is the API server read timeout (10s)
	ServerRead = 10 * time.Second

	// ServerWrite is the API server write timeout (30s)
	ServerWrite = 30 * time.Second

	// ShutdownGrace is the time allowed for in-flight work on shutdown (30s)
	ShutdownGrace = 30 * time.Second

	// TelemetryShutdown bounds flushing spans on exit (5s)
	TelemetryShutdown = 5 * time.Second

	// TelemetryConnect bounds the OTLP exporter connection (10s)
	TelemetryConnect = 10 * time.Second
)

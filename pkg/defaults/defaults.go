// Package defaults provides canonical default values for reconsuite.
//
// Usage:
//
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//	cfg.BackendURL = defaults.BackendURL
//
// Prefer these constants over literals so the CLI, the API server and the
// tests agree on the same values.
package defaults

import "fmt"

// Version is the current reconsuite version
const Version = "0.3.0"

// ToolName is the program name used in banners, spans and metric prefixes.
const ToolName = "reconsuite"

// UserAgent is sent on every backend request.
var UserAgent = fmt.Sprintf("%s/%s", ToolName, Version)

// ============================================================================
// BACKEND
// ============================================================================

const (
	// BackendURL is the scan backend address used when nothing else is configured.
	BackendURL = "http://localhost:8000"

	// ScanPathPrefix is prepended to every category path.
	ScanPathPrefix = "/scan/"

	// MaxResponseBytes caps a single backend reply (32 MiB)
	MaxResponseBytes = 32 << 20
)

// ============================================================================
// HTTP
// ============================================================================

const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// ListenAddr is where `reconsuite serve` binds by default.
	ListenAddr = ":8080"
)

// ============================================================================
// RETRY
// ============================================================================

const (
	// RetryAttempts is the default number of attempts per category.
	// One attempt means no retries.
	RetryAttempts = 1

	// RetryMaxAttempts bounds any configured attempt count.
	RetryMaxAttempts = 10
)

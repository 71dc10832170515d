// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// SESSION BUDGET DEFAULTS
// =============================================================================

// DefaultWarningThreshold is the budget usage fraction at which a warning
// alert fires.
const DefaultWarningThreshold = 0.7

// DefaultCriticalThreshold is the budget usage fraction at which a critical
// alert fires.
const DefaultCriticalThreshold = 0.9

// DefaultMaxExchanges caps agent exchanges per session.
const DefaultMaxExchanges = 5

// DefaultAutoStop controls whether new sessions stop admitting agents once
// the budget is exhausted.
const DefaultAutoStop = true

// =============================================================================
// SERVER
// =============================================================================

// DefaultListenAddr binds to loopback; the arbiter fronts an orchestrator on
// the same host, not the public internet.
const DefaultListenAddr = "127.0.0.1:8090"

// DefaultReadTimeout for the HTTP server.
const DefaultReadTimeout = 15 * time.Second

// DefaultWriteTimeout for the HTTP server.
const DefaultWriteTimeout = 30 * time.Second

// MaxRequestBodySize is the maximum allowed request body (1MB). Candidate
// messages are conversation turns, not file uploads.
const MaxRequestBodySize = 1 * 1024 * 1024

// =============================================================================
// STORE
// =============================================================================

// DefaultStorePath is the SQLite database file for best-effort persistence.
const DefaultStorePath = "arbiter.db"

// DefaultPersistQueueSize bounds the write-behind queue. When full, writes
// are dropped (persistence is best-effort; the ledger stays authoritative).
const DefaultPersistQueueSize = 256

// DefaultPersistTimeout bounds each write-behind store operation.
const DefaultPersistTimeout = 2 * time.Second

// =============================================================================
// LOGGING
// =============================================================================

// DefaultLogLevel for zerolog.
const DefaultLogLevel = "info"

// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.HTTPFuzzing)
//	if resp.Elapsed > duration.AbsoluteTimeCeiling {
//
// DO NOT use hardcoded time.Duration values like `10 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

// HTTPFuzzing is the per-request timeout for baseline and candidate sends (10s)
const HTTPFuzzing = 10 * time.Second

// ============================================================================
// CHECK THRESHOLDS
// ============================================================================

// AbsoluteTimeCeiling raises TIME_ABSOLUTE when a response takes longer than this (10s)
const AbsoluteTimeCeiling = 10 * time.Second

// ============================================================================
// RETRY INTERVALS
// ============================================================================

// RetryFast is the delay before the single baseline retry (1s)
const RetryFast = 1 * time.Second

// ============================================================================
// NETWORK/TRANSPORT
// ============================================================================

const (
	// DialTimeout is for establishing TCP connections (10s)
	DialTimeout = 10 * time.Second

	// KeepAlive is for TCP keep-alive interval (30s)
	KeepAlive = 30 * time.Second

	// IdleConnTimeout is for idle connection pool timeout (90s)
	IdleConnTimeout = 90 * time.Second

	// TLSHandshake is for TLS handshake timeout (10s)
	TLSHandshake = 10 * time.Second
)

// ============================================================================
// OBSERVABILITY
// ============================================================================

const (
	// TelemetryConnect bounds the OTLP exporter dial (10s)
	TelemetryConnect = 10 * time.Second

	// TelemetryShutdown bounds span flushing at exit (5s)
	TelemetryShutdown = 5 * time.Second

	// MetricsReadTimeout is the metrics server read timeout (5s)
	MetricsReadTimeout = 5 * time.Second

	// MetricsWriteTimeout is the metrics server write timeout (10s)
	MetricsWriteTimeout = 10 * time.Second
)

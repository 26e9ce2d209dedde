// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	cfg.Concurrency = defaults.ConcurrencyMedium
//	thresholds.TimeDiffPercent = defaults.TimeDiffPercent
//	if strings.Contains(ct, defaults.ContentTypeForm) {
//
// DO NOT use hardcoded values like `Concurrency: 10` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

// Version is the current sigfuzz version
const Version = "0.3.0"

// ToolName is the canonical tool identifier used in spans, metrics and user agents.
const ToolName = "sigfuzz"

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================

const (
	// ConcurrencyMedium is the default campaign worker count (10)
	ConcurrencyMedium = 10

	// ConcurrencyMax is the upper bound accepted from configuration (200)
	ConcurrencyMax = 200
)

// ============================================================================
// BASELINE RETRY
// ============================================================================

const (
	// BaselineAttempts is the total number of baseline sends when the
	// first attempt fails to connect (1 retry).
	BaselineAttempts = 2
)

// ============================================================================
// CHECK THRESHOLDS
// ============================================================================
//
// Percent thresholds are relative to the baseline. Both use the
// |candidate-baseline| / (baseline+1) * 100 formula.
// ============================================================================

const (
	// TimeDiffPercent is the elapsed-time deviation that raises TIME_DIFF_* (1000%)
	TimeDiffPercent = 1000.0

	// LengthDiffPercent is the body-length deviation that raises LENGTH_DIFF_* (200%)
	LengthDiffPercent = 200.0
)

// ============================================================================
// SCORING BUCKETS
// ============================================================================

const (
	// BucketLowMin is the lowest score assigned the Low bucket.
	BucketLowMin = 0.0

	// BucketMediumMin is the lowest score assigned the Medium bucket.
	BucketMediumMin = 5.0

	// BucketHighMin is the lowest score assigned the High bucket.
	BucketHighMin = 10.0
)

// ============================================================================
// INJECTION
// ============================================================================

const (
	// Marker is the placeholder that designates a URL injection point.
	Marker = "FUZZ"

	// TruncateAt is the payload length (in runes) at which reported
	// values are shortened.
	TruncateAt = 512

	// TruncateKeep is the number of runes kept at each end of a
	// shortened payload.
	TruncateKeep = 256
)

// ============================================================================
// HTTP
// ============================================================================

const (
	// MaxRedirects is the redirect hop limit before a TooManyRedirects failure (30)
	MaxRedirects = 30

	// MaxBodySize bounds the bytes read from any response (1MB)
	MaxBodySize int64 = 1024 * 1024

	// RateLimit is the default requests per second (0 = unlimited)
	RateLimit = 0

	// ContentTypeForm is the URL-encoded form content type.
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// ============================================================================
// OBSERVABILITY
// ============================================================================

const (
	// MetricsPath is the default path the Prometheus handler is mounted on.
	MetricsPath = "/metrics"

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace = "sigfuzz"
)

// UABot is the default User-Agent header for fuzz traffic.
const UABot = "Mozilla/5.0 (compatible; sigfuzz/" + Version + ")"

package finding

import "errors"

// Sentinel errors for common campaign failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrBaselineFailed indicates the baseline request could not be
	// completed, so no candidate can be compared against it.
	ErrBaselineFailed = errors.New("finding: baseline request failed")

	// ErrTimeout indicates the target did not respond within the
	// configured deadline.
	ErrTimeout = errors.New("finding: timeout")

	// ErrTargetUnreachable indicates the target host could not be
	// reached (DNS failure, connection refused, etc.).
	ErrTargetUnreachable = errors.New("finding: target unreachable")

	// ErrNoPayloads indicates no payloads were available for the
	// requested test type.
	ErrNoPayloads = errors.New("finding: no payloads available")
)

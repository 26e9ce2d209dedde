package checks

import "errors"

// Sentinel errors for classifier misuse.
var (
	// ErrNilResponse indicates a response classifier was handed no response.
	ErrNilResponse = errors.New("checks: nil response")

	// ErrNilFailure indicates the failure classifier was handed no failure.
	ErrNilFailure = errors.New("checks: nil failure")

	// ErrUnknownKind indicates a check name that is not registered.
	ErrUnknownKind = errors.New("checks: unknown check kind")
)

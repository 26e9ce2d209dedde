package signal

import "errors"

// Sentinel errors for signal construction and registration.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidSignal indicates a Signal with an empty key or a
	// negative, NaN or infinite strength.
	ErrInvalidSignal = errors.New("signal: invalid signal")

	// ErrUnsupportedType indicates Register was handed a value that
	// is neither a Signal nor a collection of them.
	ErrUnsupportedType = errors.New("signal: unsupported type")
)

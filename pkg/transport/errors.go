package transport

import "errors"

// Sentinel errors for transport failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrTooManyRedirects indicates the redirect hop limit was exceeded.
	ErrTooManyRedirects = errors.New("transport: too many redirects")

	// ErrInvalidProxy indicates the proxy URL is malformed or uses an
	// unsupported scheme.
	ErrInvalidProxy = errors.New("transport: invalid proxy")

	// ErrInvalidRequest indicates a request descriptor could not be
	// turned into an HTTP request.
	ErrInvalidRequest = errors.New("transport: invalid request")
)

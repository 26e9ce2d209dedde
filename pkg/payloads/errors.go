package payloads

import "errors"

// Sentinel errors for payload management failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrPayloadNotFound indicates the requested payload file does not exist.
	ErrPayloadNotFound = errors.New("payloads: payload file not found")

	// ErrPathEscape indicates a payload file name that resolves outside
	// the payload directory.
	ErrPathEscape = errors.New("payloads: path escapes payload directory")
)

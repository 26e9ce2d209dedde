package checks

import (
	"fmt"

	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// Tags attached by the HTTP classifiers.
const (
	TagClientFail        = "CLIENT_FAIL"
	TagServerFail        = "SERVER_FAIL"
	TagServerRedirect    = "SERVER_REDIRECT"
	TagConnectionFail    = "CONNECTION_FAIL"
	TagConnectionTimeout = "CONNECTION_TIMEOUT"
	TagExceptionRaised   = "EXCEPTION_RAISED"
)

// badStatusDetails explains status codes that commonly point at a fault.
var badStatusDetails = map[int]string{
	413: "the server rejected the request due to its body size",
	414: "the server rejected the request due to its URL length",
	429: "the server is rate limiting your requests",
	500: "the server encountered an unknown error",
	501: "the server doesn't implement this method or endpoint",
	502: "the application server is down",
	503: "the application server is down",
	504: "the application server is down",
}

const unknownStatusDetail = "the request was rejected for an unknown reason"

// StatusCode classifies the response status. Every non-2xx code produces a
// Signal of strength 1; 2xx codes produce a zero-strength Signal.
func StatusCode(resp *transport.Response) (signal.Signal, error) {
	if resp == nil {
		return signal.Signal{}, ErrNilResponse
	}
	code := resp.StatusCode
	details, known := badStatusDetails[code]
	if !known {
		details = unknownStatusDetail
	}

	class := fmt.Sprintf("%dXX", code/100)
	var tags []string
	strength := 1.0
	switch {
	case code >= 200 && code < 300:
		strength = 0
	case code >= 300 && code < 400:
		// 304 means "use your cache", not a redirect.
		if code != 304 {
			tags = append(tags, TagServerRedirect)
		}
	case code >= 400 && code < 500:
		tags = append(tags, TagClientFail)
	case code >= 500 && code < 600:
		tags = append(tags, TagServerFail)
	}

	text := fmt.Sprintf("A %d HTTP status code was returned by the server, with reason '%s'. "+
		"This typically indicates that %s.", code, resp.Reason, details)

	return signal.New(fmt.Sprintf("HTTP_STATUS_CODE_%s_%d", class, code), tags, strength, text, signal.Evidence{
		Request:  resp.Request,
		Response: resp,
		Data: map[string]any{
			"status_code": code,
			"reason":      resp.Reason,
			"details":     details,
		},
	})
}

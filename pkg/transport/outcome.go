package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"strings"
	"syscall"
	"unicode"
)

// Outcome enumerates how a send ended.
type Outcome int

const (
	// Success means a response was received, whatever its status.
	Success Outcome = iota
	// ConnectionFailure covers refused, reset and unresolvable targets.
	ConnectionFailure
	// Timeout means the per-request deadline elapsed.
	Timeout
	// TooManyRedirects means the redirect hop limit was reached.
	TooManyRedirects
	// HTTPError means the server spoke something that was not valid HTTP.
	HTTPError
	// Other is any failure the transport could not place.
	Other
)

var outcomeNames = map[Outcome]string{
	Success:           "Success",
	ConnectionFailure: "ConnectionError",
	Timeout:           "Timeout",
	TooManyRedirects:  "TooManyRedirects",
	HTTPError:         "HTTPError",
	Other:             "Other",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Failure is the error returned by a Sender when no usable response exists.
type Failure struct {
	Outcome Outcome
	// Name overrides the kind reported by Kind. Set for Other failures.
	Name     string
	Err      error
	Request  *Request
	Response *Response
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return "transport: " + f.Kind()
	}
	return fmt.Sprintf("transport: %s: %v", f.Kind(), f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Kind names the failure, e.g. "Timeout" or "ConnectionError".
func (f *Failure) Kind() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Outcome.String()
}

// NewFailure classifies err and wraps it with the originating request.
func NewFailure(err error, req *Request) *Failure {
	f := &Failure{Outcome: Classify(err), Err: err, Request: req}
	if f.Outcome == Other {
		f.Name = errorName(err)
	}
	return f
}

// AsFailure returns err as a *Failure, classifying foreign errors.
// It returns nil for a nil error.
func AsFailure(err error, req *Request) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		if f.Request == nil {
			f.Request = req
		}
		return f
	}
	return NewFailure(err, req)
}

// Classify maps a send error to an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Outcome
	}
	if errors.Is(err, ErrTooManyRedirects) {
		return TooManyRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
			syscall.EHOSTUNREACH, syscall.ENETUNREACH:
			return ConnectionFailure
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectionFailure
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ConnectionFailure
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "malformed http"),
		strings.Contains(errStr, "http response to https client"),
		strings.Contains(errStr, "invalid status"),
		strings.Contains(errStr, "unexpected eof reading trailer"):
		return HTTPError
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "no such host"),
		strings.Contains(errStr, "tls"),
		strings.Contains(errStr, "x509"),
		strings.Contains(errStr, "broken pipe"):
		return ConnectionFailure
	case strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "deadline exceeded"):
		return Timeout
	}
	return Other
}

// errorName derives a stable kind name from the innermost error type.
func errorName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" || !unicode.IsUpper([]rune(name)[0]) {
		return "UnknownError"
	}
	return name
}

// Package transport defines the request/response model exchanged with a
// target and the Sender abstraction that carries it over the wire.
//
// Every transport-level failure is surfaced as a *Failure carrying an
// enumerated Outcome, so callers classify failures without depending on
// net/http error types.
//
// Usage:
//
//	client, err := transport.NewClient(transport.DefaultConfig())
//	resp, err := client.Send(ctx, req, duration.HTTPFuzzing)
//	var f *transport.Failure
//	if errors.As(err, &f) && f.Outcome == transport.Timeout { ... }
package transport

import (
	"context"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request is a transport-agnostic HTTP request descriptor.
type Request struct {
	Method  string      `json:"method" yaml:"method"`
	URL     string      `json:"url" yaml:"url"`
	Headers http.Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	Query   url.Values  `json:"query,omitempty" yaml:"query,omitempty"`
	Body    string      `json:"body,omitempty" yaml:"body,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Headers != nil {
		c.Headers = r.Headers.Clone()
	}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// FullURL returns URL with Query merged into its query string.
func (r *Request) FullURL() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}
	if len(r.Query) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, v := range r.Query {
		q[k] = append(q[k], v...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Host returns the host portion of URL, or "" if it cannot be parsed.
func (r *Request) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Path returns the path portion of URL, or "" if it cannot be parsed.
func (r *Request) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// ContentType returns the Content-Type header value.
func (r *Request) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// Build converts r into a net/http request bound to ctx.
func (r *Request) Build(ctx context.Context) (*http.Request, error) {
	full, err := r.FullURL()
	if err != nil {
		return nil, err
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), full, body)
	if err != nil {
		return nil, err
	}
	if r.Headers != nil {
		req.Header = r.Headers.Clone()
		if host := r.Headers.Get("Host"); host != "" {
			req.Host = host
		}
	}
	return req, nil
}

// Response is a completed exchange with the target.
type Response struct {
	Request    *Request      `json:"-"`
	StatusCode int           `json:"status_code"`
	Reason     string        `json:"reason"`
	Headers    http.Header   `json:"headers,omitempty"`
	Body       []byte        `json:"-"`
	Elapsed    time.Duration `json:"-"`
}

// Len returns the number of body bytes received.
func (r *Response) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Body)
}

// Header returns a copy of the response headers.
func (r *Response) Header() http.Header {
	if r == nil || r.Headers == nil {
		return http.Header{}
	}
	return maps.Clone(r.Headers)
}

// Sender performs a single request with a per-request timeout.
// A non-nil error is always a *Failure.
type Sender interface {
	Send(ctx context.Context, req *Request, timeout time.Duration) (*Response, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, req *Request, timeout time.Duration) (*Response, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, req *Request, timeout time.Duration) (*Response, error) {
	return f(ctx, req, timeout)
}

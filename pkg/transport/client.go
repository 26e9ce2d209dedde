package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// InsecureSkipVerify skips TLS certificate verification (default: true for security scanning)
	InsecureSkipVerify bool

	// Proxy is an http, https, socks5 or socks5h proxy URL (optional)
	Proxy string

	// NoRedirects returns 3xx responses as-is instead of following them
	NoRedirects bool

	// MaxRedirects is the hop limit before a TooManyRedirects failure (default: 30)
	MaxRedirects int

	// RateLimit caps requests per second across all workers (0 = unlimited)
	RateLimit float64

	// MaxBodySize bounds the bytes read from each response (default: 1MB)
	MaxBodySize int64

	// MaxConnsPerHost is the maximum connections per host (default: 25)
	MaxConnsPerHost int

	// UserAgent is set on requests that carry no User-Agent header
	UserAgent string
}

// DefaultConfig returns sensible defaults for fuzzing campaigns.
func DefaultConfig() Config {
	return Config{
		InsecureSkipVerify: true, // Security scanners often need this
		MaxRedirects:       defaults.MaxRedirects,
		RateLimit:          defaults.RateLimit,
		MaxBodySize:        defaults.MaxBodySize,
		MaxConnsPerHost:    25,
		UserAgent:          defaults.UABot,
	}
}

// Client is a Sender backed by net/http.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	maxBody int64
	ua      string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for debug tracing of sends.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client. The client's
// redirect policy is used as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaults.MaxRedirects
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 25
	}

	dialer := &net.Dialer{
		Timeout:   duration.DialTimeout,
		KeepAlive: duration.KeepAlive,
	}

	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       duration.IdleConnTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   duration.TLSHandshake,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if err := applyProxy(tr, dialer, cfg.Proxy); err != nil {
		return nil, err
	}

	maxRedirects := cfg.MaxRedirects
	noRedirects := cfg.NoRedirects
	c := &Client{
		http: &http.Client{
			Transport: tr,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if noRedirects {
					return http.ErrUseLastResponse
				}
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		maxBody: cfg.MaxBodySize,
		ua:      cfg.UserAgent,
		logger:  slog.Default(),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// applyProxy installs an HTTP proxy function or a SOCKS dialer on tr.
func applyProxy(tr *http.Transport, dialer *net.Dialer, raw string) error {
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidProxy, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, dialer)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("%w: socks dialer does not support contexts", ErrInvalidProxy)
		}
		tr.DialContext = cd.DialContext
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
}

// Send performs req, bounded by timeout. The timeout covers rate-limit
// waiting, connection, redirects and body reading.
func (c *Client) Send(ctx context.Context, req *Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = duration.HTTPFuzzing
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, NewFailure(ctx.Err(), req)
			}
			// Wait refuses early when the deadline cannot accommodate a token.
			return nil, &Failure{Outcome: Timeout, Err: err, Request: req}
		}
	}

	httpReq, err := req.Build(ctx)
	if err != nil {
		return nil, &Failure{Outcome: Other, Name: "InvalidRequest", Err: fmt.Errorf("%w: %v", ErrInvalidRequest, err), Request: req}
	}
	if c.ua != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.ua)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		f := NewFailure(err, req)
		c.logger.Debug("send failed",
			slog.String("method", httpReq.Method),
			slog.String("url", httpReq.URL.String()),
			slog.String("outcome", f.Kind()),
			slog.String("error", err.Error()),
		)
		return nil, f
	}
	defer drainAndClose(resp.Body)

	body, err := readBody(resp.Body, c.maxBody)
	elapsed := time.Since(start)
	out := &Response{
		Request:    req,
		StatusCode: resp.StatusCode,
		Reason:     reason(resp),
		Headers:    resp.Header.Clone(),
		Body:       body,
		Elapsed:    elapsed,
	}
	if err != nil {
		f := NewFailure(err, req)
		f.Response = out
		return nil, f
	}

	c.logger.Debug("send complete",
		slog.String("method", httpReq.Method),
		slog.String("url", httpReq.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", elapsed),
	)
	return out, nil
}

// reason extracts the reason phrase from the status line.
func reason(resp *http.Response) string {
	r := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if r == "" {
		r = http.StatusText(resp.StatusCode)
	}
	return r
}

// readBody reads r with a size limit.
func readBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// drainAndClose reads any remaining data from r and closes it so the
// connection can be reused for keep-alive.
func drainAndClose(r io.ReadCloser) {
	if r == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	r.Close()
}

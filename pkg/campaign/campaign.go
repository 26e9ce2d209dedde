// Package campaign drives one request template through the baseline,
// fan-out, classify and score cycle and collects the resulting findings.
//
// A campaign sends the unmodified request once, synchronously, retrying
// it once if the connection failed. Every (test type, injection point,
// payload) combination then becomes an independent candidate request
// dispatched on a bounded worker pool. Candidate transport failures are
// classified like any other outcome and never abort the run. A baseline
// that cannot be obtained aborts the template with an error wrapping
// finding.ErrBaselineFailed, which is reported distinctly from a run that
// simply found nothing.
//
// Usage:
//
//	runner, err := campaign.New(client, testtype.Builtins(), payloads.Dir{Base: "payloads"},
//	    campaign.DefaultConfig(), campaign.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	for _, res := range runner.RunAll(ctx, templates) {
//	    if res.Err != nil {
//	        // baseline failed or the run was canceled
//	    }
//	}
package campaign

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sigfuzz/sigfuzz/pkg/checks"
	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
	"github.com/sigfuzz/sigfuzz/pkg/metrics"
	"github.com/sigfuzz/sigfuzz/pkg/payloads"
	"github.com/sigfuzz/sigfuzz/pkg/retry"
	"github.com/sigfuzz/sigfuzz/pkg/telemetry"
	"github.com/sigfuzz/sigfuzz/pkg/testtype"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

var (
	// ErrNoTests is returned by New when no test types are given.
	ErrNoTests = errors.New("campaign: no test types")

	// ErrNilSender is returned by New when no Sender is given.
	ErrNilSender = errors.New("campaign: nil sender")
)

// Config controls a campaign.
type Config struct {
	// Concurrency bounds the number of candidate requests in flight.
	Concurrency int
	// Timeout is the per-request ceiling applied by the transport.
	Timeout time.Duration
	// Thresholds parameterize the comparative classifiers.
	Thresholds checks.Thresholds
	// BaselineRetry controls how the baseline request is retried.
	BaselineRetry retry.Config
	// Marker is used for templates that do not set their own.
	Marker string
}

// DefaultConfig returns the standard campaign configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:   defaults.ConcurrencyMedium,
		Timeout:       duration.HTTPFuzzing,
		Thresholds:    checks.DefaultThresholds(),
		BaselineRetry: retry.Baseline(),
		Marker:        defaults.Marker,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Concurrency > defaults.ConcurrencyMax {
		c.Concurrency = defaults.ConcurrencyMax
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	c.Thresholds = c.Thresholds.WithDefaults()
	if c.BaselineRetry.Attempts <= 0 {
		c.BaselineRetry = d.BaselineRetry
	}
	if c.Marker == "" {
		c.Marker = d.Marker
	}
	return c
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records campaign metrics into m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTracer sets the tracer campaign spans are started on. Defaults to
// the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// suite is a test type prepared for a run.
type suite struct {
	test   *testtype.TestType
	checks checks.Suite
	source payloads.Source
}

// Runner executes campaigns. It holds no per-campaign state and is safe
// for concurrent use.
type Runner struct {
	sender transport.Sender
	suites []suite
	cfg    Config

	logger  *slog.Logger
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

// New validates every test type, resolves its payload source through
// provider and returns a Runner.
func New(sender transport.Sender, tests []testtype.TestType, provider payloads.Provider, cfg Config, opts ...Option) (*Runner, error) {
	if sender == nil {
		return nil, ErrNilSender
	}
	if len(tests) == 0 {
		return nil, ErrNoTests
	}
	if provider == nil {
		provider = payloads.Inline{}
	}
	r := &Runner{
		sender: sender,
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		tracer: otel.Tracer(telemetry.TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range tests {
		tt := tests[i]
		if err := tt.Compile(); err != nil {
			return nil, err
		}
		src, err := provider.Source(tt.PayloadFile, tt.Payloads)
		if err != nil {
			return nil, fmt.Errorf("campaign: payloads for %s: %w", tt.Name, err)
		}
		r.suites = append(r.suites, suite{
			test:   &tt,
			checks: tt.Suite(r.cfg.Thresholds),
			source: src,
		})
	}
	return r, nil
}

// Config returns the effective configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Package metrics exposes campaign counters for Prometheus scraping.
//
// A Recorder owns its own registry so that several campaigns in one
// process, or tests running in parallel, never collide on the default
// registry. Every Recorder method is safe on a nil receiver, so callers
// can record unconditionally.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
)

// Request phases.
const (
	PhaseBaseline  = "baseline"
	PhaseCandidate = "candidate"
)

// Recorder collects campaign metrics.
type Recorder struct {
	registry *prometheus.Registry

	// Counters
	requestsTotal         *prometheus.CounterVec
	signalsTotal          *prometheus.CounterVec
	findingsTotal         *prometheus.CounterVec
	baselineFailuresTotal *prometheus.CounterVec
	campaignsTotal        *prometheus.CounterVec

	// Gauges
	inflight prometheus.Gauge

	// Histograms
	responseTimeSeconds *prometheus.HistogramVec
}

// New creates a Recorder with every collector registered.
func New() (*Recorder, error) {
	ns := defaults.MetricsNamespace
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "requests_total",
			Help:      "Requests sent, by phase and transport outcome",
		}, []string{"phase", "outcome"}),
		signalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "signals_total",
			Help:      "Signals observed on candidate responses",
		}, []string{"test", "key"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "findings_total",
			Help:      "Findings emitted",
		}, []string{"test", "severity"}),
		baselineFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "baseline_failures_total",
			Help:      "Campaigns aborted because the baseline request failed",
		}, []string{"outcome"}),
		campaignsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "campaigns_total",
			Help:      "Campaigns finished, by status",
		}, []string{"status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "inflight_requests",
			Help:      "Candidate requests currently in flight",
		}),
		responseTimeSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "response_time_seconds",
			Help:      "Response time distribution in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"phase"}),
	}

	collectors := []prometheus.Collector{
		r.requestsTotal,
		r.signalsTotal,
		r.findingsTotal,
		r.baselineFailuresTotal,
		r.campaignsTotal,
		r.inflight,
		r.responseTimeSeconds,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return r, nil
}

// Registry returns the Recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRequest counts one request and, when it got a response, records
// its latency.
func (r *Recorder) ObserveRequest(phase, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(phase, outcome).Inc()
	if elapsed > 0 {
		r.responseTimeSeconds.WithLabelValues(phase).Observe(elapsed.Seconds())
	}
}

// AddSignal counts one observed signal.
func (r *Recorder) AddSignal(test, key string) {
	if r == nil {
		return
	}
	r.signalsTotal.WithLabelValues(test, key).Inc()
}

// AddFinding counts one emitted finding.
func (r *Recorder) AddFinding(test, severity string) {
	if r == nil {
		return
	}
	r.findingsTotal.WithLabelValues(test, severity).Inc()
}

// BaselineFailed counts an aborted campaign.
func (r *Recorder) BaselineFailed(outcome string) {
	if r == nil {
		return
	}
	r.baselineFailuresTotal.WithLabelValues(outcome).Inc()
}

// CampaignDone counts a finished campaign.
func (r *Recorder) CampaignDone(status string) {
	if r == nil {
		return
	}
	r.campaignsTotal.WithLabelValues(status).Inc()
}

// Inflight adjusts the in-flight gauge by delta.
func (r *Recorder) Inflight(delta float64) {
	if r == nil {
		return
	}
	r.inflight.Add(delta)
}

// Handler serves the Recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server serves a Recorder over HTTP.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// Serve starts a metrics server on addr. The handler is mounted on
// defaults.MetricsPath.
func Serve(addr string, r *Recorder, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle(defaults.MetricsPath, r.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}
	s := &Server{
		srv: &http.Server{
			Handler:      mux,
			ReadTimeout:  duration.MetricsReadTimeout,
			WriteTimeout: duration.MetricsWriteTimeout,
		},
		ln:     ln,
		logger: logger,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("metrics server listening", slog.String("addr", ln.Addr().String()))
	return s, nil
}

// URL returns the address the metrics endpoint is reachable at.
func (s *Server) URL() string {
	return "http://" + s.ln.Addr().String() + defaults.MetricsPath
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Package telemetry configures OpenTelemetry tracing for campaigns.
//
// Usage:
//
//	tp, err := telemetry.Setup(ctx, telemetry.Options{Endpoint: "localhost:4317", Insecure: true})
//	if err != nil {
//	    return err
//	}
//	defer tp.Shutdown(context.Background())
//	runner := campaign.New(sender, tests, provider, cfg, campaign.WithTracer(tp.Tracer()))
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
)

// TracerName is the instrumentation scope used for campaign spans.
const TracerName = "sigfuzz/campaign"

// ErrNoEndpoint is returned by Setup when no collector endpoint is given.
var ErrNoEndpoint = errors.New("telemetry: no OTLP endpoint configured")

// Options configures the OTLP exporter.
type Options struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "sigfuzz").
	ServiceName string

	// Insecure uses insecure connection (no TLS).
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ConnectionTimeout is the timeout for establishing connection (default: 10s).
	ConnectionTimeout time.Duration

	// ShutdownTimeout bounds span flushing in Shutdown (default: 5s).
	ShutdownTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ServiceName == "" {
		o.ServiceName = defaults.ToolName
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = duration.TelemetryConnect
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = duration.TelemetryShutdown
	}
	return o
}

// Provider wraps the SDK tracer provider.
type Provider struct {
	tp   *sdktrace.TracerProvider
	opts Options
}

// Setup creates an OTLP exporter and installs a tracer provider as the
// global provider.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	opts = opts.withDefaults()

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectionTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	p := NewProvider(opts, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(p.tp)
	return p, nil
}

// NewProvider builds a Provider around the given span processors without
// touching the global provider. Tests pass a tracetest.SpanRecorder.
func NewProvider(opts Options, extra ...sdktrace.TracerProviderOption) *Provider {
	opts = opts.withDefaults()
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "campaign"),
	)
	tpOpts := append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}, extra...)
	return &Provider{tp: sdktrace.NewTracerProvider(tpOpts...), opts: opts}
}

// Tracer returns the campaign tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(TracerName)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ShutdownTimeout)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

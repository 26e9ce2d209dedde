package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/sigfuzz/sigfuzz/pkg/campaign"
	"github.com/sigfuzz/sigfuzz/pkg/config"
	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/inject"
	"github.com/sigfuzz/sigfuzz/pkg/metrics"
	"github.com/sigfuzz/sigfuzz/pkg/payloads"
	"github.com/sigfuzz/sigfuzz/pkg/report"
	"github.com/sigfuzz/sigfuzz/pkg/telemetry"
	"github.com/sigfuzz/sigfuzz/pkg/testtype"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
	"github.com/sigfuzz/sigfuzz/presets"
)

// exitError carries the exit code for a failed scan.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error     { return &exitError{code: defaults.ExitUserError, err: err} }
func internalError(err error) error { return &exitError{code: defaults.ExitInternalError, err: err} }

func runScan(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		printUsage(stdout)
		return defaults.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fmt.Fprintf(stderr, "Run '%s help' for usage.\n", defaults.ToolName)
		return defaults.ExitUserError
	}

	logger := newLogger(cfg, stderr)
	code, err := scan(ctx, cfg, stdout, logger)
	if err != nil {
		logger.Error("scan failed", slog.String("error", err.Error()))
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return defaults.ExitInternalError
	}
	return code
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == config.LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func scan(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) (int, error) {
	tests, err := loadTests(cfg)
	if err != nil {
		return 0, userError(err)
	}
	templates, err := loadTemplates(cfg)
	if err != nil {
		return 0, userError(err)
	}

	rec, err := metrics.New()
	if err != nil {
		return 0, internalError(err)
	}
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.MetricsAddr, rec, logger)
		if err != nil {
			return 0, userError(err)
		}
		defer shutdown(ctx, logger, "metrics server", srv.Shutdown)
	}

	opts := []campaign.Option{campaign.WithLogger(logger), campaign.WithMetrics(rec)}
	if cfg.OTLPEndpoint != "" {
		tp, err := telemetry.Setup(ctx, telemetry.Options{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: defaults.ToolName,
			Insecure:    cfg.OTLPInsecure,
		})
		if err != nil {
			return 0, userError(err)
		}
		defer shutdown(ctx, logger, "telemetry", tp.Shutdown)
		opts = append(opts, campaign.WithTracer(tp.Tracer()))
	}

	client, err := transport.NewClient(cfg.Transport(), transport.WithLogger(logger))
	if err != nil {
		return 0, userError(err)
	}

	var provider payloads.Provider = payloads.FS{Root: presets.FS}
	if cfg.PayloadDir != "" {
		provider = payloads.Dir{Base: cfg.PayloadDir}
	}

	runner, err := campaign.New(client, tests, provider, cfg.Campaign(), opts...)
	if err != nil {
		return 0, userError(err)
	}

	out := stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return 0, userError(err)
		}
		defer f.Close()
		out = f
	}
	format, _ := report.ParseFormat(cfg.OutputFormat)
	rw, err := report.New(format, out, cfg.Report())
	if err != nil {
		return 0, userError(err)
	}

	logger.Info("starting scan",
		slog.Int("templates", len(templates)),
		slog.Int("tests", len(tests)),
		slog.Int("concurrency", cfg.Concurrency))

	var results []*campaign.Result
	runErr := runner.RunEach(ctx, templates, func(res *campaign.Result) error {
		results = append(results, res)
		if res.Failed() {
			logger.Warn("campaign failed",
				slog.String("template", res.Template),
				slog.String("error", res.Error))
		}
		return rw.Write(res)
	})
	if err := rw.Close(); err != nil {
		return 0, internalError(err)
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		logger.Warn("scan interrupted", slog.Int("completed", len(results)), slog.Int("total", len(templates)))
	default:
		return 0, internalError(runErr)
	}

	sum := report.Summarize(results)
	logger.Info("scan finished",
		slog.Int("campaigns", sum.Campaigns),
		slog.Int("findings", sum.Findings),
		slog.Int("failed", sum.Failed))
	return exitCode(results), nil
}

// exitCode maps scan results to the process exit code.
func exitCode(results []*campaign.Result) int {
	sum := report.Summarize(results)
	if sum.Findings > 0 {
		return defaults.ExitFindingsFound
	}
	if len(results) == 0 {
		return defaults.ExitSuccess
	}
	for _, r := range results {
		if !errors.Is(r.Err, finding.ErrBaselineFailed) {
			return defaults.ExitSuccess
		}
	}
	return defaults.ExitNetworkError
}

func loadTests(cfg *config.Config) ([]testtype.TestType, error) {
	var all []testtype.TestType
	if !cfg.NoBuiltins {
		all = append(all, testtype.Builtins()...)
	}
	for _, path := range cfg.TestFiles {
		tts, err := testtype.LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, tts...)
	}
	return testtype.Select(all, cfg.Tests)
}

func loadTemplates(cfg *config.Config) ([]inject.Template, error) {
	var out []inject.Template
	for _, path := range cfg.Templates {
		tmpls, err := inject.LoadTemplates(path)
		if err != nil {
			return nil, fmt.Errorf("templates %s: %w", path, err)
		}
		out = append(out, tmpls...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no templates found", config.ErrMissingRequired)
	}
	for i := range out {
		if len(cfg.Headers) == 0 {
			break
		}
		req := out[i].Request
		if req.Headers == nil {
			req.Headers = http.Header{}
		}
		for k, v := range cfg.Headers {
			if req.Headers.Get(k) == "" {
				req.Headers.Set(k, v)
			}
		}
	}
	return out, nil
}

func shutdown(ctx context.Context, logger *slog.Logger, what string, fn func(context.Context) error) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), duration.TelemetryShutdown)
	defer cancel()
	if err := fn(sctx); err != nil {
		logger.Warn("shutdown failed", slog.String("component", what), slog.String("error", err.Error()))
	}
}

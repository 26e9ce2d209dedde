// Package config holds the scanner's run configuration.
//
// Settings come from an optional YAML file (-config) and command-line
// flags; a flag given explicitly always wins over the file.
//
// Usage:
//
//	cfg, err := config.Parse(os.Args[1:])
//	if err != nil {
//	    return err
//	}
//	client, err := transport.NewClient(cfg.Transport())
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigfuzz/sigfuzz/pkg/campaign"
	"github.com/sigfuzz/sigfuzz/pkg/checks"
	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
	"github.com/sigfuzz/sigfuzz/pkg/report"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// Log formats.
const (
	LogText = "text"
	LogJSON = "json"
)

// Config holds all run configuration.
type Config struct {
	// Input settings
	Templates  []string `yaml:"templates"`   // Template files or directories
	TestFiles  []string `yaml:"test_files"`  // Additional test type definitions
	Tests      []string `yaml:"tests"`       // Test types to run (empty = all)
	NoBuiltins bool     `yaml:"no_builtins"` // Skip the built-in test types
	PayloadDir string   `yaml:"payload_dir"` // Directory holding payload files
	Marker     string   `yaml:"marker"`      // URL injection marker (default: FUZZ)

	// Headers are added to every template's baseline request.
	Headers map[string]string `yaml:"headers"`

	// Execution settings
	Concurrency int               `yaml:"concurrency"` // Candidate requests in flight (default: 10)
	Timeout     time.Duration     `yaml:"timeout"`     // Per-request timeout (default: 10s)
	RateLimit   float64           `yaml:"rate_limit"`  // Requests per second, 0 = unlimited
	Thresholds  checks.Thresholds `yaml:"thresholds"`

	// Network settings
	Proxy        string `yaml:"proxy"`         // HTTP or SOCKS5 proxy URL
	VerifyTLS    bool   `yaml:"verify_tls"`    // Verify server certificates
	NoRedirects  bool   `yaml:"no_redirects"`  // Do not follow redirects
	MaxRedirects int    `yaml:"max_redirects"` // Redirect limit (default: 30)
	MaxBodySize  int64  `yaml:"max_body_size"` // Response body read limit in bytes

	// Output settings
	OutputFile     string `yaml:"output"`          // Output file path (empty = stdout)
	OutputFormat   string `yaml:"format"`          // console, json, jsonl, template
	ReportTemplate string `yaml:"report_template"` // Template file or built-in name for -format template
	Pretty         bool   `yaml:"pretty"`          // Indent JSON output
	Verbose        bool   `yaml:"verbose"`         // Debug logging and finding reasons
	NoColor        bool   `yaml:"no_color"`        // Disable colored output
	LogFormat      string `yaml:"log_format"`      // text or json

	// Observability
	MetricsAddr  string `yaml:"metrics_addr"`  // Serve Prometheus metrics on this address
	OTLPEndpoint string `yaml:"otlp_endpoint"` // Export traces to this OTLP gRPC endpoint
	OTLPInsecure bool   `yaml:"otlp_insecure"` // Disable TLS to the collector
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Marker:       defaults.Marker,
		Headers:      map[string]string{},
		Concurrency:  defaults.ConcurrencyMedium,
		Timeout:      duration.HTTPFuzzing,
		RateLimit:    defaults.RateLimit,
		Thresholds:   checks.DefaultThresholds(),
		MaxRedirects: defaults.MaxRedirects,
		MaxBodySize:  defaults.MaxBodySize,
		OutputFormat: string(report.FormatConsole),
		LogFormat:    LogText,
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return cfg, nil
}

// Parse builds the configuration from args (without the program name).
// Remaining positional arguments are template paths.
// A -h or -help flag returns an error matching flag.ErrHelp.
func Parse(args []string) (*Config, error) {
	cfg := Default()
	fs, path := newFlagSet(cfg)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if *path != "" {
		file, err := Load(*path)
		if err != nil {
			return nil, err
		}
		// Re-apply explicit flags over the file.
		overlay, _ := newFlagSet(file)
		var errs []error
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "config" {
				return
			}
			if err := overlay.Set(f.Name, f.Value.String()); err != nil {
				errs = append(errs, err)
			}
		})
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		cfg = file
	}

	cfg.Templates = append(cfg.Templates, fs.Args()...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Usage writes the flag documentation to w.
func Usage(w io.Writer) {
	fs, _ := newFlagSet(Default())
	fs.SetOutput(w)
	fmt.Fprintf(w, "Usage: %s [flags] template.yaml [template.yaml ...]\n\n", defaults.ToolName)
	fs.PrintDefaults()
}

func newFlagSet(cfg *Config) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(defaults.ToolName, flag.ContinueOnError)
	path := fs.String("config", "", "YAML configuration file")

	// === INPUT ===
	fs.Var((*stringSlice)(&cfg.Templates), "templates", "Template file(s) or directories - comma-separated or repeated")
	fs.Var((*stringSlice)(&cfg.Templates), "t", "Templates (alias)")
	fs.Var((*stringSlice)(&cfg.TestFiles), "test-file", "Additional test type YAML file(s)")
	fs.Var((*stringSlice)(&cfg.Tests), "tests", "Test types to run (default: all)")
	fs.BoolVar(&cfg.NoBuiltins, "no-builtins", cfg.NoBuiltins, "Do not load built-in test types")
	fs.StringVar(&cfg.PayloadDir, "payloads", cfg.PayloadDir, "Payload directory (default: bundled lists)")
	fs.StringVar(&cfg.PayloadDir, "p", cfg.PayloadDir, "Payload dir (alias)")
	fs.StringVar(&cfg.Marker, "marker", cfg.Marker, "URL injection marker")
	fs.Var((*headerMap)(&cfg.Headers), "H", "Header added to every request, 'Name: value' (repeatable)")

	// === EXECUTION ===
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Concurrent candidate requests")
	fs.IntVar(&cfg.Concurrency, "c", cfg.Concurrency, "Concurrency (alias)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Max requests per second (0 = unlimited)")
	fs.Float64Var(&cfg.RateLimit, "rl", cfg.RateLimit, "Rate limit (alias)")
	fs.Float64Var(&cfg.Thresholds.TimeDiffPercent, "time-diff", cfg.Thresholds.TimeDiffPercent, "Timing difference threshold in percent")
	fs.Float64Var(&cfg.Thresholds.LengthDiffPercent, "length-diff", cfg.Thresholds.LengthDiffPercent, "Length difference threshold in percent")
	fs.DurationVar(&cfg.Thresholds.AbsoluteTime, "max-time", cfg.Thresholds.AbsoluteTime, "Absolute response time ceiling")

	// === NETWORK ===
	fs.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "HTTP/SOCKS5 proxy URL")
	fs.StringVar(&cfg.Proxy, "x", cfg.Proxy, "Proxy (alias)")
	fs.BoolVar(&cfg.VerifyTLS, "verify-tls", cfg.VerifyTLS, "Verify TLS certificates")
	fs.BoolVar(&cfg.NoRedirects, "no-redirects", cfg.NoRedirects, "Do not follow redirects")
	fs.IntVar(&cfg.MaxRedirects, "max-redirects", cfg.MaxRedirects, "Maximum redirects to follow")
	fs.Int64Var(&cfg.MaxBodySize, "max-body", cfg.MaxBodySize, "Response body read limit in bytes")

	// === OUTPUT ===
	fs.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Output file path")
	fs.StringVar(&cfg.OutputFile, "o", cfg.OutputFile, "Output file (alias)")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: console,json,jsonl,template")
	fs.StringVar(&cfg.ReportTemplate, "report-template", cfg.ReportTemplate, "Report template file or built-in (csv, text-summary)")
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Indent JSON output")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose (alias)")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output")
	fs.BoolVar(&cfg.NoColor, "nc", cfg.NoColor, "No color (alias)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")

	// === OBSERVABILITY ===
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP gRPC endpoint for traces")
	fs.BoolVar(&cfg.OTLPInsecure, "otlp-insecure", cfg.OTLPInsecure, "Use an insecure connection to the collector")

	return fs, path
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Templates) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one template", ErrMissingRequired))
	}
	if c.Concurrency < 1 || c.Concurrency > defaults.ConcurrencyMax {
		errs = append(errs, fmt.Errorf("concurrency must be between 1 and %d, got %d", defaults.ConcurrencyMax, c.Concurrency))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %g", c.RateLimit))
	}
	if c.Thresholds.TimeDiffPercent < 0 || c.Thresholds.LengthDiffPercent < 0 || c.Thresholds.AbsoluteTime < 0 {
		errs = append(errs, errors.New("thresholds must not be negative"))
	}
	if c.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("max redirects must not be negative, got %d", c.MaxRedirects))
	}
	if _, err := report.ParseFormat(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains([]string{LogText, LogJSON}, c.LogFormat) {
		errs = append(errs, fmt.Errorf("log format must be %q or %q, got %q", LogText, LogJSON, c.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Transport returns the HTTP client configuration.
func (c *Config) Transport() transport.Config {
	tc := transport.DefaultConfig()
	tc.InsecureSkipVerify = !c.VerifyTLS
	tc.Proxy = c.Proxy
	tc.NoRedirects = c.NoRedirects
	if c.MaxRedirects > 0 {
		tc.MaxRedirects = c.MaxRedirects
	}
	tc.RateLimit = c.RateLimit
	if c.MaxBodySize > 0 {
		tc.MaxBodySize = c.MaxBodySize
	}
	tc.MaxConnsPerHost = c.Concurrency
	return tc
}

// Campaign returns the campaign configuration.
func (c *Config) Campaign() campaign.Config {
	cc := campaign.DefaultConfig()
	cc.Concurrency = c.Concurrency
	cc.Timeout = c.Timeout
	cc.Thresholds = c.Thresholds
	cc.Marker = c.Marker
	return cc
}

// Report returns the reporting options.
func (c *Config) Report() report.Options {
	opts := report.Options{NoColor: c.NoColor, Verbose: c.Verbose, Pretty: c.Pretty}
	if c.ReportTemplate != "" {
		if _, err := os.Stat(c.ReportTemplate); err == nil {
			opts.Template.TemplatePath = c.ReportTemplate
		} else {
			opts.Template.BuiltIn = c.ReportTemplate
		}
	}
	return opts
}

// stringSlice is a flag.Value collecting comma-separated or repeated values.
type stringSlice []string

func (s *stringSlice) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// headerMap is a flag.Value collecting "Name: value" headers.
type headerMap map[string]string

func (h *headerMap) String() string {
	if h == nil || *h == nil {
		return ""
	}
	keys := make([]string, 0, len(*h))
	for k := range *h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + (*h)[k]
	}
	return strings.Join(parts, "\n")
}

func (h *headerMap) Set(v string) error {
	if *h == nil {
		*h = map[string]string{}
	}
	for _, line := range strings.Split(v, "\n") {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid header %q: want 'Name: value'", line)
		}
		(*h)[name] = strings.TrimSpace(value)
	}
	return nil
}

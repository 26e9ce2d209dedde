package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
	"github.com/sigfuzz/sigfuzz/pkg/report"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigfuzz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, defaults.ConcurrencyMedium, cfg.Concurrency)
	assert.Equal(t, duration.HTTPFuzzing, cfg.Timeout)
	assert.Equal(t, defaults.Marker, cfg.Marker)
	assert.Equal(t, string(report.FormatConsole), cfg.OutputFormat)
	assert.Equal(t, LogText, cfg.LogFormat)
	assert.False(t, cfg.VerifyTLS)

	// Only the missing templates should fail.
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestParse_FlagsAndPositional(t *testing.T) {
	cfg, err := Parse([]string{
		"-c", "25",
		"-timeout", "3s",
		"-tests", "command_injection,int_overflow",
		"-H", "Authorization: Bearer x",
		"-format", "jsonl",
		"-max-time", "5s",
		"a.yaml", "b.yaml",
	})
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Concurrency)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"command_injection", "int_overflow"}, cfg.Tests)
	assert.Equal(t, "Bearer x", cfg.Headers["Authorization"])
	assert.Equal(t, "jsonl", cfg.OutputFormat)
	assert.Equal(t, 5*time.Second, cfg.Thresholds.AbsoluteTime)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.Templates)
}

func TestParse_RepeatedSliceFlag(t *testing.T) {
	cfg, err := Parse([]string{"-t", "a.yaml", "-templates", "b.yaml,c.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yaml", "b.yaml", "c.yaml"}, cfg.Templates)
}

func TestParse_FileThenFlags(t *testing.T) {
	path := writeFile(t, `
templates: [api.yaml]
concurrency: 50
timeout: 2s
proxy: socks5://127.0.0.1:1080
thresholds:
  time_diff_percent: 300
  length_diff_percent: 10
  absolute_time: 8s
headers:
  X-Api-Key: secret
format: json
`)

	cfg, err := Parse([]string{"-config", path, "-c", "5"})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Concurrency, "explicit flag wins over file")
	assert.Equal(t, 2*time.Second, cfg.Timeout, "file wins over default")
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.Proxy)
	assert.Equal(t, 300.0, cfg.Thresholds.TimeDiffPercent)
	assert.Equal(t, 10.0, cfg.Thresholds.LengthDiffPercent)
	assert.Equal(t, 8*time.Second, cfg.Thresholds.AbsoluteTime)
	assert.Equal(t, "secret", cfg.Headers["X-Api-Key"])
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, []string{"api.yaml"}, cfg.Templates)
	assert.Equal(t, defaults.Marker, cfg.Marker, "unset keys keep defaults")
}

func TestParse_FilePlusFlagHeaders(t *testing.T) {
	path := writeFile(t, "templates: [a.yaml]\nheaders:\n  A: one\n")
	cfg, err := Parse([]string{"-config", path, "-H", "B: two"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "one", "B": "two"}, cfg.Headers)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope", "a.yaml"}},
		{"bad duration", []string{"-timeout", "soon", "a.yaml"}},
		{"bad header", []string{"-H", "novalue", "a.yaml"}},
		{"zero concurrency", []string{"-c", "0", "a.yaml"}},
		{"too much concurrency", []string{"-c", "100000", "a.yaml"}},
		{"negative rate", []string{"-rl", "-1", "a.yaml"}},
		{"unknown format", []string{"-format", "xml", "a.yaml"}},
		{"unknown log format", []string{"-log-format", "logfmt", "a.yaml"}},
		{"no templates", nil},
		{"missing config file", []string{"-config", "/nonexistent/sigfuzz.yaml", "a.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "concurrency: [1, 2\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 0
	cfg.Timeout = 0
	cfg.OutputFormat = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "xml")
}

func TestConfig_Transport(t *testing.T) {
	cfg := Default()
	cfg.VerifyTLS = true
	cfg.Proxy = "http://proxy:8080"
	cfg.RateLimit = 20
	cfg.NoRedirects = true
	cfg.Concurrency = 7

	tc := cfg.Transport()
	assert.False(t, tc.InsecureSkipVerify)
	assert.Equal(t, "http://proxy:8080", tc.Proxy)
	assert.Equal(t, 20.0, tc.RateLimit)
	assert.True(t, tc.NoRedirects)
	assert.Equal(t, defaults.MaxRedirects, tc.MaxRedirects)
	assert.Equal(t, 7, tc.MaxConnsPerHost)
}

func TestConfig_Campaign(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 3
	cfg.Timeout = time.Second
	cfg.Marker = "INJECT"
	cfg.Thresholds.AbsoluteTime = time.Minute

	cc := cfg.Campaign()
	assert.Equal(t, 3, cc.Concurrency)
	assert.Equal(t, time.Second, cc.Timeout)
	assert.Equal(t, "INJECT", cc.Marker)
	assert.Equal(t, time.Minute, cc.Thresholds.AbsoluteTime)
}

func TestConfig_Report(t *testing.T) {
	cfg := Default()
	cfg.ReportTemplate = "csv"
	assert.Equal(t, "csv", cfg.Report().Template.BuiltIn)

	path := writeFile(t, "{{ .Tool }}")
	cfg.ReportTemplate = path
	opts := cfg.Report()
	assert.Equal(t, path, opts.Template.TemplatePath)
	assert.Empty(t, opts.Template.BuiltIn)
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	Usage(&buf)
	out := buf.String()
	assert.Contains(t, out, "-concurrency")
	assert.Contains(t, out, "-otlp-endpoint")
	assert.Contains(t, out, "Usage: sigfuzz")
}

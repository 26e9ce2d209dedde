package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sigfuzz/sigfuzz/pkg/campaign"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("report: unknown format")

// Format names an output format.
type Format string

const (
	FormatConsole  Format = "console"
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatTemplate Format = "template"
)

// Formats lists every supported format.
var Formats = []Format{FormatConsole, FormatJSON, FormatJSONL, FormatTemplate}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Writer consumes campaign results. Close flushes buffered output; it
// does not close the underlying io.Writer.
type Writer interface {
	Write(res *campaign.Result) error
	Close() error
}

// Options configures New.
type Options struct {
	// NoColor disables console colour.
	NoColor bool
	// Verbose makes the console writer print reasons for each finding.
	Verbose bool
	// Pretty indents JSON output.
	Pretty bool
	// Template configures FormatTemplate.
	Template TemplateConfig
}

// New returns a Writer for format writing to w.
func New(format Format, w io.Writer, opts Options) (Writer, error) {
	switch format {
	case FormatConsole:
		return NewConsoleWriter(w, ConsoleOptions{NoColor: opts.NoColor, Verbose: opts.Verbose}), nil
	case FormatJSON:
		return NewJSONWriter(w, opts.Pretty), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatTemplate:
		return NewTemplateWriter(w, opts.Template)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

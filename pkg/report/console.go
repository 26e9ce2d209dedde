package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/sigfuzz/sigfuzz/pkg/campaign"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
)

// Compile-time interface check.
var _ Writer = (*ConsoleWriter)(nil)

// Severity colours.
var (
	colorCritical = lipgloss.Color("#FF0000")
	colorHigh     = lipgloss.Color("#FF6B6B")
	colorMedium   = lipgloss.Color("#FFD93D")
	colorLow      = lipgloss.Color("#6BCB77")
	colorInfo     = lipgloss.Color("#4D96FF")
	colorMuted    = lipgloss.Color("#6B7280")
	colorError    = lipgloss.Color("#FF3838")
	colorSuccess  = lipgloss.Color("#00D26A")
)

// ConsoleOptions configures the console writer.
type ConsoleOptions struct {
	NoColor bool
	Verbose bool
}

// ConsoleWriter prints a human-readable report.
type ConsoleWriter struct {
	w    io.Writer
	mu   sync.Mutex
	opts ConsoleOptions

	title    lipgloss.Style
	muted    lipgloss.Style
	failed   lipgloss.Style
	ok       lipgloss.Style
	severity map[finding.Severity]lipgloss.Style

	results []*campaign.Result
}

// NewConsoleWriter creates a console writer. Colour is used only when w
// is a terminal and NoColor is unset.
func NewConsoleWriter(w io.Writer, opts ConsoleOptions) *ConsoleWriter {
	r := lipgloss.NewRenderer(w)
	if opts.NoColor || !isTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	badge := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(c)
	}
	return &ConsoleWriter{
		w:      w,
		opts:   opts,
		title:  r.NewStyle().Bold(true),
		muted:  r.NewStyle().Foreground(colorMuted),
		failed: r.NewStyle().Bold(true).Foreground(colorError),
		ok:     r.NewStyle().Foreground(colorSuccess),
		severity: map[finding.Severity]lipgloss.Style{
			finding.Critical: badge(colorCritical),
			finding.High:     badge(colorHigh),
			finding.Medium:   badge(colorMedium),
			finding.Low:      badge(colorLow),
			finding.Info:     badge(colorInfo),
		},
	}
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Write prints res as soon as it arrives.
func (cw *ConsoleWriter) Write(res *campaign.Result) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.results = append(cw.results, res)

	var b strings.Builder
	status := cw.ok.Render(res.Status)
	if res.Failed() {
		status = cw.failed.Render(res.Status)
	}
	fmt.Fprintf(&b, "%s %s %s\n", cw.title.Render(res.Template), status,
		cw.muted.Render(fmt.Sprintf("(%d candidates, %d failures, %d findings, %s)",
			res.Candidates, res.Failures, len(res.Findings), res.Duration.Round(time.Millisecond))))
	if res.Error != "" {
		fmt.Fprintf(&b, "  %s\n", cw.failed.Render("error: "+res.Error))
	}
	for _, f := range res.Findings {
		cw.writeFinding(&b, f)
	}
	_, err := io.WriteString(cw.w, b.String())
	return err
}

func (cw *ConsoleWriter) writeFinding(b *strings.Builder, f *finding.Finding) {
	style, ok := cw.severity[f.Severity]
	if !ok {
		style = cw.severity[finding.Info]
	}
	sev := style.Render(fmt.Sprintf("[%s]", strings.ToUpper(string(f.Severity))))
	fmt.Fprintf(b, "  %s %s %s %s=%s %s\n",
		sev,
		f.Test,
		cw.muted.Render("confidence="+f.Confidence.String()),
		f.Parameter.Location+":"+f.Parameter.Name,
		fmt.Sprintf("%q", f.Parameter.Value),
		cw.muted.Render(statusOf(f)),
	)
	if cw.opts.Verbose {
		fmt.Fprintf(b, "      %s\n", f.Text)
		for _, r := range f.Reasons {
			fmt.Fprintf(b, "      %s %s\n", cw.muted.Render("-"), firstLine(r))
		}
	}
}

func statusOf(f *finding.Finding) string {
	if f.Failure != "" {
		return f.Failure
	}
	return fmt.Sprintf("HTTP %d", f.StatusCode)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Close prints the run summary.
func (cw *ConsoleWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	s := Summarize(cw.results)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %d campaigns (%d completed, %d failed, %d canceled), %d candidates, %d findings\n",
		cw.title.Render("Summary:"), s.Campaigns, s.Completed, s.Failed, s.Canceled, s.Candidates, s.Findings)
	for _, sev := range []finding.Severity{finding.Critical, finding.High, finding.Medium, finding.Low, finding.Info} {
		if n := s.BySeverity[string(sev)]; n > 0 {
			fmt.Fprintf(&b, "  %s %d\n", cw.severity[sev].Render(string(sev)), n)
		}
	}
	_, err := io.WriteString(cw.w, b.String())
	return err
}

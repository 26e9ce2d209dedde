package testtype

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/scoring"
)

// Trigger raises a finding whenever a Signal matching Pattern is present,
// independently of the score.
type Trigger struct {
	Name       string           `yaml:"name"`
	Pattern    string           `yaml:"pattern"`
	Severity   finding.Severity `yaml:"severity"`
	Confidence scoring.Bucket   `yaml:"confidence"`
	// Text is a text/template rendered with TriggerData.
	Text string `yaml:"text"`

	tmpl *template.Template
}

// TriggerData is the template context for trigger and finding text.
type TriggerData struct {
	TestType      string
	StatusCode    int
	Reason        string
	Elapsed       float64
	Payload       string
	Location      string
	Parameter     string
	Score         float64
	Signals       []string
	Matches       []string
	TimePercent   float64
	LengthPercent float64
}

// Compile validates t and parses its text template.
func (t *Trigger) Compile() error {
	if t.Name == "" {
		return fmt.Errorf("trigger: missing name")
	}
	if t.Pattern == "" {
		return fmt.Errorf("trigger %s: missing pattern", t.Name)
	}
	if t.Severity == "" {
		t.Severity = finding.Low
	}
	if !t.Severity.IsValid() {
		return fmt.Errorf("trigger %s: unknown severity %q", t.Name, t.Severity)
	}
	if t.Confidence == scoring.None {
		t.Confidence = scoring.Low
	}
	tmpl, err := template.New(t.Name).Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(t.Text)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", t.Name, err)
	}
	t.tmpl = tmpl
	return nil
}

// Render executes the text template against data.
func (t *Trigger) Render(data TriggerData) (string, error) {
	if t.tmpl == nil {
		if err := t.Compile(); err != nil {
			return "", err
		}
	}
	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("trigger %s: %w", t.Name, err)
	}
	return b.String(), nil
}

// DefaultTriggers are raised by every test type unless disabled.
func DefaultTriggers() []Trigger {
	return []Trigger{
		{
			Name:       "500_errors",
			Pattern:    "HTTP_STATUS_CODE_5XX",
			Severity:   finding.Low,
			Confidence: scoring.High,
			Text: "This request returns an error with status code {{ .StatusCode }}, which might " +
				"indicate some server-side fault that could lead to further vulnerabilities",
		},
		{
			Name:       "length_diff",
			Pattern:    "LENGTH_DIFF_OVER",
			Severity:   finding.Low,
			Confidence: scoring.Low,
			Text: "The difference in length between the response to the baseline request and the " +
				"request returned when sending an attack string exceeds {{ .LengthPercent }} percent, " +
				"which could indicate a vulnerability to injection attacks",
		},
	}
}

// Package testtype describes the kinds of fuzz tests a campaign runs.
//
// A TestType bundles everything the campaign needs to judge a candidate
// response: which injection locations to fuzz, which classifiers to run,
// the rule table the score is computed from, and triggers that raise
// findings directly when a signal appears. Test types are plain values
// owned by the caller; there is no global registry.
package testtype

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sigfuzz/sigfuzz/pkg/checks"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/inject"
	"github.com/sigfuzz/sigfuzz/pkg/scoring"
	"github.com/sigfuzz/sigfuzz/pkg/signal"
)

// ErrInvalidTestType indicates a test type definition that cannot run.
var ErrInvalidTestType = errors.New("testtype: invalid test type")

// TestType is a single fuzz test definition.
type TestType struct {
	Name       string           `yaml:"name"`
	DefectType string           `yaml:"defect_type"`
	Severity   finding.Severity `yaml:"severity"`
	// Text describes a scored finding. It is a text/template.
	Text string `yaml:"text"`

	Locations      []inject.Location `yaml:"locations"`
	Checks         []checks.Kind     `yaml:"checks"`
	FailureStrings []string          `yaml:"failure_strings"`
	Rules          scoring.RuleTable `yaml:"rules"`
	Triggers       []Trigger         `yaml:"triggers"`
	// NoDefaultTriggers disables the 500_errors and length_diff triggers.
	NoDefaultTriggers bool `yaml:"no_default_triggers"`
	// AbsoluteTime, when set, replaces the campaign's absolute time ceiling.
	AbsoluteTime time.Duration `yaml:"absolute_time"`

	PayloadFile string   `yaml:"payload_file"`
	Payloads    []string `yaml:"payloads"`

	text *Trigger
}

// Compile validates tt and prepares its templates. It is idempotent.
func (tt *TestType) Compile() error {
	if tt.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTestType)
	}
	if tt.Severity == "" {
		tt.Severity = finding.Medium
	}
	if !tt.Severity.IsValid() {
		return fmt.Errorf("%w: %s: unknown severity %q", ErrInvalidTestType, tt.Name, tt.Severity)
	}
	if tt.DefectType == "" {
		tt.DefectType = tt.Name
	}
	if err := tt.Rules.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTestType, tt.Name, err)
	}
	if len(tt.Rules) == 0 && len(tt.Triggers) == 0 && tt.NoDefaultTriggers {
		return fmt.Errorf("%w: %s: no rules or triggers", ErrInvalidTestType, tt.Name)
	}
	for i := range tt.Triggers {
		if err := tt.Triggers[i].Compile(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidTestType, tt.Name, err)
		}
	}
	text := tt.Text
	if text == "" {
		text = "The response to this request scored {{ printf \"%.2f\" .Score }} for " + tt.Name + "."
	}
	tt.text = &Trigger{Name: tt.DefectType, Pattern: tt.Name, Text: text}
	if err := tt.text.Compile(); err != nil {
		return fmt.Errorf("%w: %s: text: %w", ErrInvalidTestType, tt.Name, err)
	}
	return nil
}

// RenderText renders the scored-finding description.
func (tt *TestType) RenderText(data TriggerData) (string, error) {
	if tt.text == nil {
		if err := tt.Compile(); err != nil {
			return "", err
		}
	}
	return tt.text.Render(data)
}

// Suite returns the classifiers this test type runs. Length comparison is
// enabled whenever the default triggers are, and literal matching whenever
// failure strings are defined.
func (tt *TestType) Suite(th checks.Thresholds) checks.Suite {
	enabled := slices.Clone(tt.Checks)
	if !tt.NoDefaultTriggers && !slices.Contains(enabled, checks.KindLengthDiff) {
		enabled = append(enabled, checks.KindLengthDiff)
	}
	if len(tt.FailureStrings) > 0 && !slices.Contains(enabled, checks.KindLiteralMatch) {
		enabled = append(enabled, checks.KindLiteralMatch)
	}
	if tt.AbsoluteTime > 0 {
		th.AbsoluteTime = tt.AbsoluteTime
	}
	return checks.Suite{Thresholds: th, Enabled: enabled, FailureStrings: tt.FailureStrings}
}

// AllTriggers returns the default triggers, unless disabled, followed by
// the test type's own.
func (tt *TestType) AllTriggers() []Trigger {
	var out []Trigger
	if !tt.NoDefaultTriggers {
		out = append(out, DefaultTriggers()...)
	}
	return append(out, tt.Triggers...)
}

// Fired returns the triggers whose pattern matches c. Triggers sharing a
// name are alternatives: only the first that matches fires.
func (tt *TestType) Fired(c *signal.Collection) []Trigger {
	var out []Trigger
	seen := map[string]bool{}
	for _, t := range tt.AllTriggers() {
		if seen[t.Name] || !c.Matches(t.Pattern) {
			continue
		}
		seen[t.Name] = true
		out = append(out, t)
	}
	return out
}

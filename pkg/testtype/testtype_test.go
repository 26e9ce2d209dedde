package testtype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigfuzz/sigfuzz/pkg/checks"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/scoring"
	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

func sig(t *testing.T, key string, tags ...string) signal.Signal {
	t.Helper()
	s, err := signal.New(key, tags, 1, "", signal.Evidence{})
	require.NoError(t, err)
	return s
}

func TestCompile(t *testing.T) {
	t.Run("defaults filled", func(t *testing.T) {
		tt := TestType{Name: "X", Rules: scoring.KeyRules(map[string]float64{"A": 1})}
		require.NoError(t, tt.Compile())
		assert.Equal(t, finding.Medium, tt.Severity)
		assert.Equal(t, "X", tt.DefectType)
	})
	t.Run("missing name", func(t *testing.T) {
		tt := TestType{}
		assert.ErrorIs(t, tt.Compile(), ErrInvalidTestType)
	})
	t.Run("bad severity", func(t *testing.T) {
		tt := TestType{Name: "X", Severity: "urgent"}
		assert.ErrorIs(t, tt.Compile(), ErrInvalidTestType)
	})
	t.Run("nothing to fire", func(t *testing.T) {
		tt := TestType{Name: "X", NoDefaultTriggers: true}
		assert.ErrorIs(t, tt.Compile(), ErrInvalidTestType)
	})
	t.Run("bad rule table", func(t *testing.T) {
		tt := TestType{Name: "X", Rules: scoring.RuleTable{{Pattern: "", Points: 1}}}
		err := tt.Compile()
		assert.ErrorIs(t, err, ErrInvalidTestType)
		assert.ErrorIs(t, err, scoring.ErrMalformedRuleTable)
	})
	t.Run("bad trigger template", func(t *testing.T) {
		tt := TestType{Name: "X", Triggers: []Trigger{{Name: "t", Pattern: "P", Text: "{{ .Nope"}}}
		assert.ErrorIs(t, tt.Compile(), ErrInvalidTestType)
	})
	t.Run("trigger without pattern", func(t *testing.T) {
		tt := TestType{Name: "X", Triggers: []Trigger{{Name: "t"}}}
		assert.ErrorIs(t, tt.Compile(), ErrInvalidTestType)
	})
}

func TestSuite(t *testing.T) {
	ci := CommandInjection()
	s := ci.Suite(checks.DefaultThresholds())
	assert.Contains(t, s.Enabled, checks.KindLiteralMatch)
	assert.Contains(t, s.Enabled, checks.KindAbsoluteTime)
	assert.Contains(t, s.Enabled, checks.KindLengthDiff)
	assert.Equal(t, CommandInjectionFailureStrings, s.FailureStrings)

	// A sleep of exactly the ceiling fires for command injection only.
	slow := &transport.Response{StatusCode: 200, Elapsed: duration.AbsoluteTimeCeiling}
	c, err := s.Evaluate(slow, slow, nil)
	require.NoError(t, err)
	assert.True(t, c.Has("TIME_ABSOLUTE"))

	ovf := IntOverflow()
	c, err = ovf.Suite(checks.DefaultThresholds()).Evaluate(slow, slow, nil)
	require.NoError(t, err)
	assert.False(t, c.Has("TIME_ABSOLUTE"))

	tt := TestType{Name: "X", NoDefaultTriggers: true, FailureStrings: []string{"boom"}}
	s = tt.Suite(checks.DefaultThresholds())
	assert.Equal(t, []checks.Kind{checks.KindLiteralMatch}, s.Enabled)
	assert.Empty(t, tt.Checks, "suite must not alias the test type's checks")
}

func TestFired(t *testing.T) {
	ci := CommandInjection()
	require.NoError(t, ci.Compile())

	t.Run("literal wins over elapsed", func(t *testing.T) {
		c := signal.NewCollection(sig(t, "LITERAL_MATCH", checks.TagKnownBadString), sig(t, "TIME_ABSOLUTE", checks.TagConnectionTimeout))
		fired := ci.Fired(c)
		require.Len(t, fired, 1)
		assert.Equal(t, "command_injection", fired[0].Name)
		assert.Contains(t, fired[0].Text, "commonly returned")
	})
	t.Run("elapsed alone", func(t *testing.T) {
		fired := ci.Fired(signal.NewCollection(sig(t, "TIME_ABSOLUTE", checks.TagConnectionTimeout)))
		require.Len(t, fired, 1)
		assert.Contains(t, fired[0].Text, "time elapsed")
	})
	t.Run("defaults fire first", func(t *testing.T) {
		c := signal.NewCollection(
			sig(t, "HTTP_STATUS_CODE_5XX_500", checks.TagServerFail),
			sig(t, "LENGTH_DIFF_OVER"),
			sig(t, "LITERAL_MATCH"),
		)
		var names []string
		for _, f := range ci.Fired(c) {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"500_errors", "length_diff", "command_injection"}, names)
	})
	t.Run("defaults disabled", func(t *testing.T) {
		tt := TestType{Name: "X", NoDefaultTriggers: true, Triggers: []Trigger{{Name: "t", Pattern: "Y"}}}
		require.NoError(t, tt.Compile())
		assert.Empty(t, tt.Fired(signal.NewCollection(sig(t, "HTTP_STATUS_CODE_5XX_500"))))
	})
	t.Run("nothing", func(t *testing.T) {
		assert.Empty(t, ci.Fired(signal.NewCollection()))
	})
}

func TestRender(t *testing.T) {
	d := DefaultTriggers()
	require.Len(t, d, 2)

	out, err := d[0].Render(TriggerData{StatusCode: 503})
	require.NoError(t, err)
	assert.Contains(t, out, "status code 503")

	out, err = d[1].Render(TriggerData{LengthPercent: 200})
	require.NoError(t, err)
	assert.Contains(t, out, "exceeds 200 percent")

	tr := Trigger{Name: "sprig", Pattern: "P", Text: `{{ .Payload | trunc 3 | upper }}`}
	out, err = tr.Render(TriggerData{Payload: "abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)
	assert.Equal(t, finding.Low, tr.Severity)
	assert.Equal(t, scoring.Low, tr.Confidence)
}

func TestRenderText(t *testing.T) {
	ovf := IntOverflow()
	out, err := ovf.RenderText(TriggerData{})
	require.NoError(t, err)
	assert.Contains(t, out, "buffer overflow")

	tt := TestType{Name: "X", Rules: scoring.KeyRules(map[string]float64{"A": 1})}
	out, err = tt.RenderText(TriggerData{Score: 7.5})
	require.NoError(t, err)
	assert.Equal(t, "The response to this request scored 7.50 for X.", out)
}

func TestIntOverflowScoring(t *testing.T) {
	ovf := IntOverflow()
	require.NoError(t, ovf.Compile())

	c := signal.NewCollection(sig(t, "HTTP_STATUS_CODE_5XX_500", checks.TagServerFail))
	res, err := scoring.Score(c, ovf.Rules)
	require.NoError(t, err)
	assert.True(t, res.Triggered())
	assert.Greater(t, res.Value, 0.0)

	res, err = scoring.Score(signal.NewCollection(sig(t, "HTTP_STATUS_CODE_2XX_200")), ovf.Rules)
	require.NoError(t, err)
	assert.False(t, res.Triggered())
}

func TestBuiltins(t *testing.T) {
	b := Builtins()
	require.Len(t, b, 2)
	assert.Equal(t, CommandInjectionName, b[0].Name)
	assert.Equal(t, IntOverflowName, b[1].Name)
	for _, tt := range b {
		assert.NotEmpty(t, tt.Payloads, tt.Name)
		assert.NotEmpty(t, tt.Locations, tt.Name)
	}
}

const testsYAML = `
tests:
  - name: SQLI_ERRORS
    severity: high
    locations: [query, body]
    checks: [literal_match]
    failure_strings: ["SQL syntax"]
    payloads: ["'", "\""]
    triggers:
      - name: sql_error
        pattern: LITERAL_MATCH
        severity: medium
        confidence: high
        text: "SQL error for {{ .Parameter }}"
  - name: SLOW
    no_default_triggers: true
    checks: [time_diff]
    rules:
      - pattern: TIME_DIFF_OVER
        match: key
        points: 10
`

func TestParse(t *testing.T) {
	tests, err := Parse([]byte(testsYAML))
	require.NoError(t, err)
	require.Len(t, tests, 2)

	sq := tests[0]
	assert.Equal(t, finding.High, sq.Severity)
	assert.Equal(t, []checks.Kind{checks.KindLiteralMatch}, sq.Checks)
	require.Len(t, sq.Triggers, 1)
	assert.Equal(t, scoring.High, sq.Triggers[0].Confidence)
	assert.Equal(t, finding.Medium, sq.Triggers[0].Severity)
	out, err := sq.Triggers[0].Render(TriggerData{Parameter: "id"})
	require.NoError(t, err)
	assert.Equal(t, "SQL error for id", out)

	slow := tests[1]
	assert.True(t, slow.NoDefaultTriggers)
	require.Len(t, slow.Rules, 1)
	assert.Equal(t, scoring.MatchKey, slow.Rules[0].Match)
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"syntax":    "tests: [",
		"duplicate": "tests:\n  - name: A\n  - name: A\n",
		"bad check": "tests:\n  - name: A\n    checks: [nope]\n",
		"no name":   "tests:\n  - severity: low\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testsYAML), 0o600))
	tests, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, tests, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	all := Builtins()
	got, err := Select(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = Select(all, []string{IntOverflowName})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, IntOverflowName, got[0].Name)

	got, err = Select(all, []string{"command_injection"})
	require.NoError(t, err)
	assert.Equal(t, CommandInjectionName, got[0].Name)

	_, err = Select(all, []string{"NOPE"})
	assert.ErrorIs(t, err, ErrInvalidTestType)
}

package testtype

import (
	"time"

	"github.com/sigfuzz/sigfuzz/pkg/checks"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/inject"
	"github.com/sigfuzz/sigfuzz/pkg/scoring"
)

// Built-in test type names.
const (
	CommandInjectionName = "COMMAND_INJECTION"
	IntOverflowName      = "INT_OVERFLOW"
)

// CommandInjectionFailureStrings appear in responses after a successful
// command injection against common targets.
var CommandInjectionFailureStrings = []string{"uid=", "root:", "default=", "[boot loader]"}

// commandInjectionCeiling lets a response of exactly
// duration.AbsoluteTimeCeiling count as a blind sleep hit.
const commandInjectionCeiling = duration.AbsoluteTimeCeiling - time.Nanosecond

// CommandInjection returns the built-in command injection test. It raises
// a finding when a known command output string is reflected, or else when
// the response takes at least duration.AbsoluteTimeCeiling.
func CommandInjection() TestType {
	return TestType{
		Name:              CommandInjectionName,
		DefectType:        "command_injection",
		Severity:          finding.High,
		Locations:         inject.AllLocations,
		Checks:            []checks.Kind{checks.KindLiteralMatch, checks.KindAbsoluteTime},
		FailureStrings:    CommandInjectionFailureStrings,
		NoDefaultTriggers: false,
		AbsoluteTime:      commandInjectionCeiling,
		PayloadFile:       "command_injection.txt",
		Payloads:          commandInjectionPayloads,
		Triggers: []Trigger{
			{
				Name:       "command_injection",
				Pattern:    "LITERAL_MATCH",
				Severity:   finding.High,
				Confidence: scoring.Medium,
				Text: "A string known to be commonly returned after a successful command injection " +
					"attack was included in the response. This could indicate a vulnerability to " +
					"command injection attacks.",
			},
			{
				Name:       "command_injection",
				Pattern:    "TIME_ABSOLUTE",
				Severity:   finding.High,
				Confidence: scoring.Medium,
				Text: "The time elapsed between the sending of the request and the arrival of the " +
					"response exceeds the expected amount of time, suggesting a vulnerability to " +
					"command injection attacks.",
			},
		},
	}
}

// IntOverflow returns the built-in integer overflow test. It is scored:
// slow responses, stack traces, server errors and dropped connections
// each add to the score.
func IntOverflow() TestType {
	rules := scoring.KeyRules(map[string]float64{
		"TIME_DIFF_OVER":       5,
		"STACK_TRACE":          10,
		"HTTP_STATUS_CODE_5XX": 5,
	})
	rules = append(rules, scoring.TagRules(map[string]float64{
		"SERVER_FAIL":        5,
		"CONNECTION_TIMEOUT": 7,
		"CONNECTION_FAIL":    10,
	})...)
	return TestType{
		Name:       IntOverflowName,
		DefectType: "int_timing",
		Severity:   finding.High,
		Text: "This request may have triggered a buffer overflow vulnerability. This happens " +
			"when the application is unable to handle input from the user, and may result in " +
			"crashes, or in the worst case, code execution.",
		Locations:   inject.AllLocations,
		Checks:      []checks.Kind{checks.KindTimeDiff, checks.KindAbsoluteTime},
		Rules:       rules,
		PayloadFile: "int_overflow.txt",
		Payloads:    intOverflowPayloads,
	}
}

// Builtins returns every built-in test type, compiled.
func Builtins() []TestType {
	out := []TestType{CommandInjection(), IntOverflow()}
	for i := range out {
		// Built-in definitions are static and always compile.
		if err := out[i].Compile(); err != nil {
			panic(err)
		}
	}
	return out
}

var commandInjectionPayloads = []string{
	";id",
	"|id",
	"`id`",
	"$(id)",
	"&& id",
	";cat /etc/passwd",
	"|cat /etc/passwd",
	"$(cat /etc/passwd)",
	"& type C:\\boot.ini",
	"| type C:\\boot.ini",
	";sleep 11",
	"`sleep 11`",
	"$(sleep 11)",
	"& ping -n 11 127.0.0.1",
}

var intOverflowPayloads = []string{
	"-1",
	"0",
	"127",
	"128",
	"255",
	"256",
	"32767",
	"32768",
	"65535",
	"65536",
	"2147483647",
	"2147483648",
	"-2147483649",
	"4294967295",
	"4294967296",
	"9223372036854775807",
	"9223372036854775808",
	"18446744073709551616",
	"1e309",
	"0x7fffffffffffffff",
}

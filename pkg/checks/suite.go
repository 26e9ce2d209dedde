package checks

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// Kind names a classifier.
type Kind string

const (
	KindStatusCode       Kind = "status_code"
	KindTransportFailure Kind = "transport_failure"
	KindTimeDiff         Kind = "time_diff"
	KindAbsoluteTime     Kind = "absolute_time"
	KindLengthDiff       Kind = "length_diff"
	KindLiteralMatch     Kind = "literal_match"
)

var knownKinds = map[Kind]bool{
	KindStatusCode:       true,
	KindTransportFailure: true,
	KindTimeDiff:         true,
	KindAbsoluteTime:     true,
	KindLengthDiff:       true,
	KindLiteralMatch:     true,
}

// ParseKind validates a classifier name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !knownKinds[k] {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// UnmarshalYAML validates the kind while decoding.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Thresholds parameterize the comparative classifiers.
type Thresholds struct {
	TimeDiffPercent   float64       `yaml:"time_diff_percent"`
	LengthDiffPercent float64       `yaml:"length_diff_percent"`
	AbsoluteTime      time.Duration `yaml:"absolute_time"`
}

// DefaultThresholds returns the standard thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TimeDiffPercent:   defaults.TimeDiffPercent,
		LengthDiffPercent: defaults.LengthDiffPercent,
		AbsoluteTime:      duration.AbsoluteTimeCeiling,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.TimeDiffPercent <= 0 {
		t.TimeDiffPercent = d.TimeDiffPercent
	}
	if t.LengthDiffPercent <= 0 {
		t.LengthDiffPercent = d.LengthDiffPercent
	}
	if t.AbsoluteTime <= 0 {
		t.AbsoluteTime = d.AbsoluteTime
	}
	return t
}

// Suite runs the status and transport classifiers unconditionally and the
// Enabled classifiers in order.
type Suite struct {
	Thresholds     Thresholds
	Enabled        []Kind
	FailureStrings []string
}

// Evaluate classifies one candidate outcome. Exactly one of resp and failure
// is expected; baseline may be nil, in which case comparative classifiers
// are skipped.
func (s Suite) Evaluate(baseline, resp *transport.Response, failure *transport.Failure) (*signal.Collection, error) {
	out := signal.NewCollection()
	if failure != nil {
		sig, err := TransportFailure(failure)
		if err != nil {
			return nil, err
		}
		out.Add(sig)
		if resp == nil {
			resp = failure.Response
		}
	}
	if resp == nil {
		if failure == nil {
			return nil, ErrNilResponse
		}
		return out, nil
	}

	sig, err := StatusCode(resp)
	if err != nil {
		return nil, err
	}
	out.Add(sig)

	th := s.Thresholds.WithDefaults()
	for _, k := range s.Enabled {
		var (
			sig signal.Signal
			err error
		)
		switch k {
		case KindStatusCode, KindTransportFailure:
			continue
		case KindTimeDiff:
			if baseline == nil {
				continue
			}
			sig, err = TimeDiff(baseline, resp, th.TimeDiffPercent)
		case KindLengthDiff:
			if baseline == nil {
				continue
			}
			sig, err = LengthDiff(baseline, resp, th.LengthDiffPercent)
		case KindAbsoluteTime:
			sig, err = AbsoluteTime(resp, th.AbsoluteTime)
		case KindLiteralMatch:
			sig, err = LiteralMatch(resp, s.FailureStrings)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out.Add(sig)
	}
	return out, nil
}

package checks

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

var upper = cases.Upper(language.Und)

// PercentDiff returns |candidate-baseline| / (baseline+1) * 100 and the
// direction, "OVER" when candidate >= baseline and "UNDER" otherwise.
// The +1 keeps a zero baseline finite, so identical values read 0 and
// small baselines are damped.
func PercentDiff(baseline, candidate float64) (float64, string) {
	dir := "OVER"
	if baseline > candidate {
		dir = "UNDER"
	}
	return math.Abs(candidate-baseline) / (baseline + 1) * 100, dir
}

// TimeDiff compares elapsed seconds of baseline and candidate. The Signal is
// TIME_DIFF_OVER or TIME_DIFF_UNDER, with zero strength below threshold.
func TimeDiff(baseline, candidate *transport.Response, thresholdPercent float64) (signal.Signal, error) {
	if baseline == nil || candidate == nil {
		return signal.Signal{}, ErrNilResponse
	}
	t0 := baseline.Elapsed.Seconds()
	t1 := candidate.Elapsed.Seconds()
	percent, dir := PercentDiff(t0, t1)

	text := fmt.Sprintf("Validate Time Differential:\n"+
		"\tResponse 1 elapsed time: %g\n"+
		"\tResponse 2 elapsed time: %g\n"+
		"\tResponse difference: %g\n"+
		"\tPercent difference: %g%%\n"+
		"\tDifference direction: %s\n"+
		"\tConfig percent: %g\n", t0, t1, t1-t0, percent, dir, thresholdPercent)

	return signal.New("TIME_DIFF_"+dir, nil, thresholdStrength(percent, thresholdPercent), text, signal.Evidence{
		Request:  candidate.Request,
		Response: candidate,
		Data: map[string]any{
			"resp1_time":   t0,
			"resp2_time":   t1,
			"percent_diff": percent,
			"dir":          dir,
		},
	})
}

// LengthDiff compares body lengths of baseline and candidate. The Signal is
// LENGTH_DIFF_OVER or LENGTH_DIFF_UNDER, with zero strength below threshold.
func LengthDiff(baseline, candidate *transport.Response, thresholdPercent float64) (signal.Signal, error) {
	if baseline == nil || candidate == nil {
		return signal.Signal{}, ErrNilResponse
	}
	l0 := float64(baseline.Len())
	l1 := float64(candidate.Len())
	percent, dir := PercentDiff(l0, l1)

	text := fmt.Sprintf("Validate Length Differential:\n"+
		"\tResponse 1 length: %d\n"+
		"\tResponse 2 length: %d\n"+
		"\tResponse difference: %d\n"+
		"\tPercent difference: %g%%\n"+
		"\tDifference direction: %s\n"+
		"\tConfig percent: %g\n", baseline.Len(), candidate.Len(), candidate.Len()-baseline.Len(), percent, dir, thresholdPercent)

	return signal.New("LENGTH_DIFF_"+dir, nil, thresholdStrength(percent, thresholdPercent), text, signal.Evidence{
		Request:  candidate.Request,
		Response: candidate,
		Data: map[string]any{
			"resp1_len":    baseline.Len(),
			"resp2_len":    candidate.Len(),
			"percent_diff": percent,
			"dir":          dir,
		},
	})
}

// AbsoluteTime flags a response that took longer than ceiling with TIME_ABSOLUTE.
func AbsoluteTime(resp *transport.Response, ceiling time.Duration) (signal.Signal, error) {
	if resp == nil {
		return signal.Signal{}, ErrNilResponse
	}
	strength := 0.0
	if resp.Elapsed > ceiling {
		strength = 1
	}
	text := fmt.Sprintf("Check that response time doesn't exceed the configured maximum:\n"+
		"\tMax time: %g\n"+
		"\tElapsed time: %g\n", ceiling.Seconds(), resp.Elapsed.Seconds())

	return signal.New("TIME_ABSOLUTE", []string{TagConnectionTimeout}, strength, text, signal.Evidence{
		Request:  resp.Request,
		Response: resp,
		Data: map[string]any{
			"elapsed":  resp.Elapsed.Seconds(),
			"max_time": ceiling.Seconds(),
		},
	})
}

func thresholdStrength(percent, threshold float64) float64 {
	if percent < threshold {
		return 0
	}
	return 1
}

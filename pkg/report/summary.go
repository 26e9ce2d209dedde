package report

import (
	"github.com/sigfuzz/sigfuzz/pkg/campaign"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
)

// Summary aggregates a run.
type Summary struct {
	Campaigns  int            `json:"campaigns"`
	Completed  int            `json:"completed"`
	Failed     int            `json:"failed"`
	Canceled   int            `json:"canceled"`
	Candidates int            `json:"candidates"`
	Failures   int            `json:"failures"`
	Findings   int            `json:"findings"`
	BySeverity map[string]int `json:"by_severity,omitempty"`
	ByTest     map[string]int `json:"by_test,omitempty"`
	// HighestSeverity is empty when there are no findings.
	HighestSeverity finding.Severity `json:"highest_severity,omitempty"`
}

// Summarize aggregates results.
func Summarize(results []*campaign.Result) Summary {
	s := Summary{BySeverity: map[string]int{}, ByTest: map[string]int{}}
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Campaigns++
		switch r.Status {
		case campaign.StatusFailed:
			s.Failed++
		case campaign.StatusCanceled:
			s.Canceled++
		default:
			s.Completed++
		}
		s.Candidates += r.Candidates
		s.Failures += r.Failures
		for _, f := range r.Findings {
			s.Findings++
			s.BySeverity[string(f.Severity)]++
			s.ByTest[f.Test]++
			if s.HighestSeverity == "" || f.Severity.Score() > s.HighestSeverity.Score() {
				s.HighestSeverity = f.Severity
			}
		}
	}
	return s
}

// findings flattens the findings of results in order.
func findings(results []*campaign.Result) []*finding.Finding {
	var out []*finding.Finding
	for _, r := range results {
		if r != nil {
			out = append(out, r.Findings...)
		}
	}
	return out
}

package campaign

import (
	"time"

	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// Status values for Result.Status.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Result is the outcome of one template's campaign.
type Result struct {
	CampaignID string `json:"campaign_id"`
	Template   string `json:"template"`
	Status     string `json:"status"`

	Baseline        *transport.Response `json:"-"`
	BaselineSignals []signal.Signal     `json:"baseline_signals,omitempty"`

	// Findings are ordered by candidate sequence.
	Findings []*finding.Finding `json:"findings"`

	// Candidates counts candidate requests sent; Failures counts those
	// that produced no response.
	Candidates int `json:"candidates"`
	Failures   int `json:"failures"`

	// Err is set when the campaign aborted or was canceled.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`

	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration,format:nano"`
}

// Failed reports whether the campaign did not run to completion.
func (r *Result) Failed() bool {
	return r.Err != nil
}

func (r *Result) setErr(err error, status string) {
	r.Err = err
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
}

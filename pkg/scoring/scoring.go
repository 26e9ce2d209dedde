// Package scoring reduces a signal.Collection to a numeric score and a
// confidence Bucket using a per-test RuleTable.
//
// For each Signal the single highest-point matching rule contributes
// strength × points; a Signal matching several rules is never counted
// twice. Ties go to the earlier rule, so scores are deterministic.
package scoring

import (
	"fmt"

	"github.com/sigfuzz/sigfuzz/pkg/signal"
)

// Contribution records how one Signal affected the score.
type Contribution struct {
	Key      string  `json:"key"`
	Pattern  string  `json:"pattern"`
	Strength float64 `json:"strength"`
	Points   float64 `json:"points"`
	Value    float64 `json:"value"`
	Text     string  `json:"text,omitempty"`
}

// Result is the outcome of scoring one collection.
type Result struct {
	Value         float64        `json:"value"`
	Bucket        Bucket         `json:"bucket"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// Triggered reports whether any rule contributed a non-zero value.
func (r Result) Triggered() bool {
	for _, c := range r.Contributions {
		if c.Value != 0 {
			return true
		}
	}
	return false
}

// Reasons returns the text of each contributing Signal.
func (r Result) Reasons() []string {
	var out []string
	for _, c := range r.Contributions {
		if c.Value != 0 && c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Score evaluates c against table. A nil or empty collection scores 0.
func Score(c *signal.Collection, table RuleTable) (Result, error) {
	if err := table.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	for _, s := range c.Signals() {
		r, ok := table.best(s)
		if !ok {
			continue
		}
		v := s.Strength * r.Points
		res.Value += v
		res.Contributions = append(res.Contributions, Contribution{
			Key:      s.Key,
			Pattern:  r.Pattern,
			Strength: s.Strength,
			Points:   r.Points,
			Value:    v,
			Text:     s.Text,
		})
	}
	res.Bucket = BucketFor(res.Value)
	return res, nil
}

func (r Result) String() string {
	return fmt.Sprintf("%.2f (%s)", r.Value, r.Bucket)
}

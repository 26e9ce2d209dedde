package scoring

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/sigfuzz/sigfuzz/pkg/signal"
)

// ErrMalformedRuleTable indicates a rule table that cannot be scored against.
var ErrMalformedRuleTable = errors.New("scoring: malformed rule table")

// MatchKind selects what part of a Signal a Rule pattern is tested against.
type MatchKind string

const (
	// MatchAny tests the key and the tags.
	MatchAny MatchKind = "any"
	// MatchKey tests the key only.
	MatchKey MatchKind = "key"
	// MatchTag tests the tags only.
	MatchTag MatchKind = "tag"
)

// Rule awards Points to a Signal matching Pattern.
type Rule struct {
	Pattern string    `yaml:"pattern" json:"pattern"`
	Match   MatchKind `yaml:"match,omitempty" json:"match,omitempty"`
	Points  float64   `yaml:"points" json:"points"`
}

// Matches reports whether s satisfies the rule.
func (r Rule) Matches(s signal.Signal) bool {
	switch r.Match {
	case MatchKey:
		return s.MatchesKey(r.Pattern)
	case MatchTag:
		return s.MatchesTag(r.Pattern)
	default:
		return s.Matches(r.Pattern)
	}
}

// RuleTable is an ordered list of rules. Earlier rules win ties.
type RuleTable []Rule

// RulesFromMap builds MatchAny rules sorted by pattern.
func RulesFromMap(m map[string]float64) RuleTable {
	t := make(RuleTable, 0, len(m))
	for p, pts := range m {
		t = append(t, Rule{Pattern: p, Match: MatchAny, Points: pts})
	}
	slices.SortFunc(t, func(a, b Rule) int { return strings.Compare(a.Pattern, b.Pattern) })
	return t
}

// KeyRules builds MatchKey rules sorted by pattern.
func KeyRules(m map[string]float64) RuleTable {
	t := RulesFromMap(m)
	for i := range t {
		t[i].Match = MatchKey
	}
	return t
}

// TagRules builds MatchTag rules sorted by pattern.
func TagRules(m map[string]float64) RuleTable {
	t := RulesFromMap(m)
	for i := range t {
		t[i].Match = MatchTag
	}
	return t
}

// Validate checks every rule.
func (t RuleTable) Validate() error {
	for i, r := range t {
		if r.Pattern == "" {
			return fmt.Errorf("%w: rule %d has an empty pattern", ErrMalformedRuleTable, i)
		}
		switch r.Match {
		case "", MatchAny, MatchKey, MatchTag:
		default:
			return fmt.Errorf("%w: rule %d (%s) has unknown match kind %q", ErrMalformedRuleTable, i, r.Pattern, r.Match)
		}
		if math.IsNaN(r.Points) || math.IsInf(r.Points, 0) {
			return fmt.Errorf("%w: rule %d (%s) has non-finite points", ErrMalformedRuleTable, i, r.Pattern)
		}
	}
	return nil
}

// best returns the highest-point rule matching s.
func (t RuleTable) best(s signal.Signal) (Rule, bool) {
	var (
		top   Rule
		found bool
	)
	for _, r := range t {
		if !r.Matches(s) {
			continue
		}
		if !found || r.Points > top.Points {
			top = r
			found = true
		}
	}
	return top, found
}

package signal

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

var upper = cases.Upper(language.Und)

// Evidence records where a Signal came from. It never affects matching.
type Evidence struct {
	Request  *transport.Request  `json:"-"`
	Response *transport.Response `json:"-"`
	Failure  *transport.Failure  `json:"-"`
	Data     map[string]any      `json:"data,omitempty"`
}

// Signal is a single typed observation.
type Signal struct {
	Key      string   `json:"key"`
	Tags     []string `json:"tags,omitempty"`
	Strength float64  `json:"strength"`
	Text     string   `json:"text"`
	Evidence Evidence `json:"evidence"`
}

// New validates and builds a Signal. Tags are copied.
func New(key string, tags []string, strength float64, text string, ev Evidence) (Signal, error) {
	if key == "" {
		return Signal{}, fmt.Errorf("%w: empty key", ErrInvalidSignal)
	}
	if math.IsNaN(strength) || math.IsInf(strength, 0) || strength < 0 {
		return Signal{}, fmt.Errorf("%w: key %s has strength %v", ErrInvalidSignal, key, strength)
	}
	return Signal{
		Key:      key,
		Tags:     slices.Clone(tags),
		Strength: strength,
		Text:     text,
		Evidence: ev,
	}, nil
}

// Observed reports whether s carries a positive strength.
func (s Signal) Observed() bool { return s.Strength > 0 }

// MatchesKey reports whether pattern occurs in the key, ignoring case.
func (s Signal) MatchesKey(pattern string) bool {
	return strings.Contains(upper.String(s.Key), upper.String(pattern))
}

// MatchesTag reports whether pattern occurs in any tag. Tag matching is
// case-sensitive.
func (s Signal) MatchesTag(pattern string) bool {
	for _, t := range s.Tags {
		if strings.Contains(t, pattern) {
			return true
		}
	}
	return false
}

// Matches reports whether pattern matches the key or any tag.
func (s Signal) Matches(pattern string) bool {
	return s.MatchesKey(pattern) || s.MatchesTag(pattern)
}

// HasTag reports whether s carries exactly tag.
func (s Signal) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

func (s Signal) String() string {
	return fmt.Sprintf("%s%v(%.2f)", s.Key, s.Tags, s.Strength)
}

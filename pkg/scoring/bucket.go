package scoring

import (
	"fmt"
	"strings"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
)

// Bucket is a coarse confidence label derived from a score.
type Bucket int

const (
	None Bucket = iota
	Low
	Medium
	High
)

var bucketNames = [...]string{"None", "Low", "Medium", "High"}

func (b Bucket) String() string {
	if b < None || b > High {
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// Above reports whether b ranks strictly higher than other.
func (b Bucket) Above(other Bucket) bool { return b > other }

// BucketFor maps a score to its bucket: below 0 is None, [0,5) Low,
// [5,10) Medium and 10 or more High.
func BucketFor(v float64) Bucket {
	switch {
	case v >= defaults.BucketHighMin:
		return High
	case v >= defaults.BucketMediumMin:
		return Medium
	case v >= defaults.BucketLowMin:
		return Low
	default:
		return None
	}
}

// ParseBucket accepts a bucket name in any case.
func ParseBucket(s string) (Bucket, error) {
	for i, name := range bucketNames {
		if strings.EqualFold(s, name) {
			return Bucket(i), nil
		}
	}
	return None, fmt.Errorf("scoring: unknown bucket %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bucket) UnmarshalText(text []byte) error {
	parsed, err := ParseBucket(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

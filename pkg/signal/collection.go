package signal

import (
	"fmt"
	"slices"
)

// Collection is an ordered, key-deduplicated set of observed Signals.
// It is not safe for concurrent mutation.
type Collection struct {
	signals []Signal
	index   map[string]int
}

// NewCollection returns a Collection seeded with sigs.
func NewCollection(sigs ...Signal) *Collection {
	c := &Collection{index: make(map[string]int)}
	c.Add(sigs...)
	return c
}

// Register adds v, which may be a Signal, *Signal, []Signal, []*Signal or
// *Collection. A nil value is a no-op.
func (c *Collection) Register(v any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case Signal:
		c.add(x)
	case *Signal:
		if x != nil {
			c.add(*x)
		}
	case []Signal:
		c.Add(x...)
	case []*Signal:
		for _, s := range x {
			if s != nil {
				c.add(*s)
			}
		}
	case *Collection:
		c.Merge(x)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	return nil
}

// Add registers each Signal in order.
func (c *Collection) Add(sigs ...Signal) {
	for _, s := range sigs {
		c.add(s)
	}
}

// Merge registers every Signal of other in its order.
func (c *Collection) Merge(other *Collection) {
	if other == nil || other == c {
		return
	}
	c.Add(other.signals...)
}

func (c *Collection) add(s Signal) {
	if !s.Observed() {
		return
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if _, dup := c.index[s.Key]; dup {
		return
	}
	c.index[s.Key] = len(c.signals)
	c.signals = append(c.signals, s)
}

// Len returns the number of Signals held.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.signals)
}

// Signals returns the Signals in registration order.
func (c *Collection) Signals() []Signal {
	if c == nil {
		return nil
	}
	return slices.Clone(c.signals)
}

// Keys returns the Signal keys in registration order.
func (c *Collection) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, len(c.signals))
	for i, s := range c.signals {
		keys[i] = s.Key
	}
	return keys
}

// Get returns the Signal registered under exactly key.
func (c *Collection) Get(key string) (Signal, bool) {
	if c == nil {
		return Signal{}, false
	}
	i, ok := c.index[key]
	if !ok {
		return Signal{}, false
	}
	return c.signals[i], true
}

// Has reports whether a Signal with exactly key is present.
func (c *Collection) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Matches reports whether any Signal's key or tags match pattern.
func (c *Collection) Matches(pattern string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.signals {
		if s.Matches(pattern) {
			return true
		}
	}
	return false
}

// Select returns a new Collection holding every Signal whose key matches
// one of keyPatterns or whose tags match one of tagPatterns.
func (c *Collection) Select(keyPatterns, tagPatterns []string) *Collection {
	out := NewCollection()
	if c == nil {
		return out
	}
	for _, s := range c.signals {
		if selected(s, keyPatterns, tagPatterns) {
			out.add(s)
		}
	}
	return out
}

func selected(s Signal, keyPatterns, tagPatterns []string) bool {
	for _, p := range keyPatterns {
		if s.MatchesKey(p) {
			return true
		}
	}
	for _, p := range tagPatterns {
		if s.MatchesTag(p) {
			return true
		}
	}
	return false
}

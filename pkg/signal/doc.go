// Package signal models the atomic observations a fuzz campaign makes
// about a response, and the deduplicating collection they accumulate in.
//
// A Signal is identified by its Key. A Collection keeps at most one
// Signal per Key (first registration wins) and silently drops Signals
// whose Strength is zero, so "no observation" never reaches scoring.
//
// Usage:
//
//	c := signal.NewCollection()
//	if err := c.Register(sig); err != nil {
//	    return err
//	}
//	if c.Matches("HTTP_STATUS_CODE_5XX") { ... }
package signal

// Package checks turns raw transport outcomes into Signals.
//
// Each classifier is a pure function of its inputs. A classifier that
// observes nothing still returns a Signal, with zero strength, which a
// signal.Collection discards on registration.
//
// Usage:
//
//	suite := checks.Suite{Thresholds: checks.DefaultThresholds(), Enabled: []checks.Kind{checks.KindLengthDiff}}
//	sigs, err := suite.Evaluate(baseline, resp, failure)
package checks

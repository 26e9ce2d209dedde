// Package finding provides the record a campaign emits when a candidate
// request looks like it exposed a defect, plus the severity scale and
// sentinel errors shared across packages.
//
// A Finding carries its provenance (the request that was sent, the
// response or failure observed, the signals that fired) together with a
// confidence Bucket from the scoring engine.
//
// Usage:
//
//	f := finding.New(finding.Finding{
//	    Test:       "command_injection",
//	    Severity:   finding.High,
//	    Confidence: scoring.Medium,
//	    Parameter:  finding.NewImpactedParameter("GET", "params", "q", payload),
//	})
package finding

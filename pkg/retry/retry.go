// Package retry re-runs an operation that must succeed before a campaign
// can proceed, such as the baseline request.
//
// Usage:
//
//	err := retry.Do(ctx, retry.Baseline(), func() error {
//	    resp, err := sender.Send(ctx, req, timeout)
//	    if err != nil {
//	        if !retryable(err) {
//	            return retry.Stop(err)
//	        }
//	        return err
//	    }
//	    baseline = resp
//	    return nil
//	})
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
)

// Config controls how often and how far apart attempts are made.
type Config struct {
	Attempts int           // Total attempts including the first; 0 runs nothing.
	Delay    time.Duration // Pause before the first retry.
	Backoff  float64       // Delay multiplier per retry; values <= 1 keep it constant.
	MaxDelay time.Duration // Cap on a single pause; 0 means uncapped.

	// OnRetry, if set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Baseline allows one retry after a short constant pause.
func Baseline() Config {
	return Config{
		Attempts: defaults.BaselineAttempts,
		Delay:    duration.RetryFast,
	}
}

// StopError marks an error as permanent.
type StopError struct {
	Err error
}

func (e *StopError) Error() string { return e.Err.Error() }
func (e *StopError) Unwrap() error { return e.Err }

// Stop wraps err so that Do returns it without further retries.
func Stop(err error) error {
	return &StopError{Err: err}
}

type sleeper interface {
	sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn until it succeeds, returns a StopError, or cfg.Attempts
// calls have failed. It returns nil, the unwrapped stop error, or the last
// error respectively. Cancellation of ctx ends the loop with ctx.Err().
func Do(ctx context.Context, cfg Config, fn func() error) error {
	return do(ctx, cfg, fn, timerSleeper{})
}

func do(ctx context.Context, cfg Config, fn func() error, s sleeper) error {
	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
		var stop *StopError
		if errors.As(err, &stop) {
			return stop.Err
		}
		if attempt == cfg.Attempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		if serr := s.sleep(ctx, cfg.Wait(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

// Wait returns the pause after the given failed attempt (1-based).
func (c Config) Wait(attempt int) time.Duration {
	d := c.Delay
	if c.Backoff > 1 {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * c.Backoff)
			if c.MaxDelay > 0 && d >= c.MaxDelay {
				break
			}
		}
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

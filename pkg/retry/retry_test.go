package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/duration"
)

type fakeSleeper struct {
	waits []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.waits = append(f.waits, d)
	return nil
}

func TestDo_FirstTry(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	calls := 0
	err := do(context.Background(), Baseline(), func() error {
		calls++
		return nil
	}, s)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 1 || len(s.waits) != 0 {
		t.Fatalf("calls=%d waits=%v, want 1 call and no waits", calls, s.waits)
	}
}

func TestDo_BaselineRetriesOnce(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	refused := errors.New("connection refused")
	calls := 0
	var retried []int

	cfg := Baseline()
	cfg.OnRetry = func(attempt int, err error) {
		if !errors.Is(err, refused) {
			t.Errorf("OnRetry got %v", err)
		}
		retried = append(retried, attempt)
	}
	err := do(context.Background(), cfg, func() error {
		calls++
		return refused
	}, s)

	if !errors.Is(err, refused) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != defaults.BaselineAttempts {
		t.Fatalf("calls = %d, want %d", calls, defaults.BaselineAttempts)
	}
	if len(s.waits) != 1 || s.waits[0] != duration.RetryFast {
		t.Fatalf("waits = %v, want [%v]", s.waits, duration.RetryFast)
	}
	if len(retried) != 1 || retried[0] != 1 {
		t.Fatalf("OnRetry attempts = %v, want [1]", retried)
	}
}

func TestDo_SucceedsOnRetry(t *testing.T) {
	t.Parallel()
	calls := 0
	err := do(context.Background(), Config{Attempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, &fakeSleeper{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDo_StopIsNotRetried(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	timeout := errors.New("timeout")
	calls := 0
	err := do(context.Background(), Baseline(), func() error {
		calls++
		return Stop(timeout)
	}, s)
	if err != timeout {
		t.Fatalf("expected the unwrapped error, got %v", err)
	}
	if calls != 1 || len(s.waits) != 0 {
		t.Fatalf("calls=%d waits=%v, want one call", calls, s.waits)
	}
}

func TestDo_ZeroAttempts(t *testing.T) {
	t.Parallel()
	err := do(context.Background(), Config{}, func() error {
		t.Fatal("fn must not run")
		return nil
	}, &fakeSleeper{})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestDo_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := do(ctx, Baseline(), func() error {
		t.Fatal("fn must not run")
		return nil
	}, &fakeSleeper{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDo_CanceledWhileWaiting(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{Attempts: 3, Delay: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWait(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		want []time.Duration
	}{
		{"constant", Config{Delay: time.Second}, []time.Duration{time.Second, time.Second, time.Second}},
		{"doubling", Config{Delay: time.Second, Backoff: 2}, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
		{"capped", Config{Delay: time.Second, Backoff: 3, MaxDelay: 5 * time.Second}, []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}},
		{"cap below delay", Config{Delay: time.Minute, MaxDelay: time.Second}, []time.Duration{time.Second, time.Second, time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				if got := tt.cfg.Wait(i + 1); got != want {
					t.Errorf("Wait(%d) = %v, want %v", i+1, got, want)
				}
			}
		})
	}
}

func TestStopError(t *testing.T) {
	t.Parallel()
	inner := errors.New("permanent")
	err := Stop(inner)
	if !errors.Is(err, inner) {
		t.Fatal("StopError must unwrap to the inner error")
	}
	if err.Error() != "permanent" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

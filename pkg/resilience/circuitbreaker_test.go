package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFail = errors.New("fail")

func fail(context.Context) error    { return errFail }
func succeed(context.Context) error { return nil }

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestNewBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.FailThreshold != DefaultBreakerOpts.FailThreshold ||
		b.opts.Timeout != DefaultBreakerOpts.Timeout ||
		b.opts.HalfOpenMax != DefaultBreakerOpts.HalfOpenMax {
		t.Fatalf("opts = %+v, want %+v", b.opts, DefaultBreakerOpts)
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, fail); !errors.Is(err, errFail) {
			t.Fatalf("call %d: expected errFail, got %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Fatal("open breaker must not invoke the call")
	}
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	_ = b.Call(ctx, fail)
	_ = b.Call(ctx, fail)
	_ = b.Call(ctx, succeed)
	_ = b.Call(ctx, fail)
	_ = b.Call(ctx, fail)
	if b.State() != StateClosed {
		t.Fatalf("expected still closed, got %v", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: 5 * time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Call(ctx, fail)
	_ = b.Call(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	now = now.Add(6 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", b.State())
	}
	if err := b.Call(ctx, succeed); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after probe success, got %v", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: 5 * time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Call(ctx, fail)
	_ = b.Call(ctx, fail)
	now = now.Add(6 * time.Second)

	_ = b.Call(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open after probe failure, got %v", b.State())
	}
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("cancellation should not trip the breaker, got %v", b.State())
	}
}

func TestBreakerCancelledProbeReleasesSlot(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }

	_ = b.Call(context.Background(), fail)
	now = now.Add(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = b.Call(ctx, func(ctx context.Context) error { return ctx.Err() })

	if err := b.Call(context.Background(), succeed); err != nil {
		t.Fatalf("expected probe slot to be free, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %v", b.State())
	}
}

func TestBreakerIgnoresRejectedErrors(t *testing.T) {
	errBadRequest := errors.New("bad request")
	b := NewBreaker(BreakerOpts{
		FailThreshold: 2,
		Timeout:       time.Second,
		IsFailure:     func(err error) bool { return !errors.Is(err, errBadRequest) },
	})
	ctx := context.Background()
	bad := func(context.Context) error { return errBadRequest }

	for i := 0; i < 5; i++ {
		if err := b.Call(ctx, bad); !errors.Is(err, errBadRequest) {
			t.Fatalf("call %d: expected the caller error back, got %v", i, err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("rejected errors must not trip the breaker, got %v", b.State())
	}

	_ = b.Call(ctx, fail)
	_ = b.Call(ctx, bad)
	_ = b.Call(ctx, fail)
	if b.State() != StateClosed {
		t.Fatalf("a rejected error resets the failure count, got %v", b.State())
	}
	_ = b.Call(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open after consecutive outages, got %v", b.State())
	}
}

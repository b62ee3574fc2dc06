package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClimateIQ/climateiq-mvp/pkg/fn"
)

func failingCall(_ context.Context) error { return errors.New("downstream error") }
func okCall(_ context.Context) error      { return nil }

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, failingCall); errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d rejected before threshold", i)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.Call(ctx, okCall); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker accepted a call: %v", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	clock := time.Now()
	b.now = func() time.Time { return clock }

	b.Call(ctx, failingCall)
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	// After the timeout the breaker allows a probe.
	clock = clock.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", b.State())
	}
	if err := b.Call(ctx, okCall); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed after probe success", b.State())
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	clock := time.Now()
	b.now = func() time.Time { return clock }

	b.Call(ctx, failingCall)
	clock = clock.Add(2 * time.Minute)
	b.Call(ctx, failingCall)
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open after failed probe", b.State())
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failingCall)
	b.Call(ctx, okCall)
	b.Call(ctx, failingCall)
	if b.State() != StateClosed {
		t.Fatalf("state = %s, interleaved success should reset the count", b.State())
	}
}

func TestBreakerStage(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	fail := func(_ context.Context, _ int) fn.Result[int] { return fn.Errf[int]("bad") }
	stage := BreakerStage(b, fail)

	if r := stage(ctx, 1); r.IsOk() {
		t.Fatal("failing stage reported ok")
	}
	// Breaker is now open; the stage must not run and the rejection surfaces.
	ran := false
	probe := BreakerStage(b, func(_ context.Context, _ int) fn.Result[int] {
		ran = true
		return fn.Ok(1)
	})
	r := probe(ctx, 1)
	if ran {
		t.Fatal("stage ran while breaker open")
	}
	if _, err := r.Unwrap(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 2})
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst tokens should be available")
	}
	if l.Allow() {
		t.Fatal("third call should be limited")
	}
}

func TestLimiterCall(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	ctx := context.Background()

	if err := l.Call(ctx, okCall); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := l.Call(ctx, okCall); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second call: %v, want ErrRateLimited", err)
	}
}

func TestLimiterStage(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	stage := LimiterStage(l, func(_ context.Context, v int) fn.Result[int] { return fn.Ok(v) })
	ctx := context.Background()

	if r := stage(ctx, 1); r.IsErr() {
		t.Fatal("first call should pass")
	}
	r := stage(ctx, 2)
	if _, err := r.Unwrap(); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

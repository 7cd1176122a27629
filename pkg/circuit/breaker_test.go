package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(config Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("broker", config, zap.NewNop())
	b.now = clock.now
	return b, clock
}

var errBroker = errors.New("broker down")

func fail(context.Context) error    { return errBroker }
func succeed(context.Context) error { return nil }

func TestNewBreaker(t *testing.T) {
	breaker := NewBreaker("test", Config{}, nil)

	if breaker.State() != StateClosed {
		t.Errorf("Expected initial state CLOSED, got %s", breaker.State())
	}
	if breaker.config.Threshold != 1 || breaker.config.MaxHalfOpen != 1 {
		t.Errorf("Expected zero config clamped, got %+v", breaker.config)
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	breaker, _ := newTestBreaker(Config{Threshold: 3, Timeout: time.Minute, SuccessThreshold: 1, MaxHalfOpen: 1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := breaker.Execute(ctx, fail); !errors.Is(err, errBroker) {
			t.Fatalf("call %d: expected broker error, got %v", i, err)
		}
	}

	if breaker.State() != StateOpen {
		t.Fatalf("Expected OPEN, got %s", breaker.State())
	}

	called := false
	err := breaker.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected fn to be skipped while open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	breaker, _ := newTestBreaker(Config{Threshold: 2, Timeout: time.Minute, SuccessThreshold: 1, MaxHalfOpen: 1})
	ctx := context.Background()

	_ = breaker.Execute(ctx, fail)
	_ = breaker.Execute(ctx, succeed)
	_ = breaker.Execute(ctx, fail)

	if breaker.State() != StateClosed {
		t.Errorf("Expected CLOSED when failures are not consecutive, got %s", breaker.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	breaker, clock := newTestBreaker(Config{Threshold: 1, Timeout: time.Second, SuccessThreshold: 2, MaxHalfOpen: 1})
	ctx := context.Background()

	_ = breaker.Execute(ctx, fail)
	clock.advance(2 * time.Second)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("Expected probe to be allowed, got %v", err)
	}
	if breaker.State() != StateHalfOpen {
		t.Fatalf("Expected HALF_OPEN, got %s", breaker.State())
	}
	if err := breaker.Allow(); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("Expected ErrTooManyRequests for second probe, got %v", err)
	}

	breaker.Record(nil)
	if err := breaker.Execute(ctx, succeed); err != nil {
		t.Fatalf("Expected second probe to pass, got %v", err)
	}
	if breaker.State() != StateClosed {
		t.Errorf("Expected CLOSED after probe successes, got %s", breaker.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	breaker, clock := newTestBreaker(Config{Threshold: 1, Timeout: time.Second, SuccessThreshold: 1, MaxHalfOpen: 1})
	ctx := context.Background()

	_ = breaker.Execute(ctx, fail)
	clock.advance(time.Second)
	_ = breaker.Execute(ctx, fail)

	if breaker.State() != StateOpen {
		t.Errorf("Expected OPEN after failed probe, got %s", breaker.State())
	}
}

func TestBreaker_CancellationNotCounted(t *testing.T) {
	breaker, _ := newTestBreaker(Config{Threshold: 1, Timeout: time.Minute, SuccessThreshold: 1, MaxHalfOpen: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := breaker.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if breaker.State() != StateClosed {
		t.Errorf("Expected CLOSED after caller cancellation, got %s", breaker.State())
	}
}

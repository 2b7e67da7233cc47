package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock, transitions *[]State) *CircuitBreaker {
	return New(Settings{
		Name:                 "test",
		FailureRateThreshold: 50,
		WindowSize:           4,
		MinimumCalls:         4,
		OpenTimeout:          10 * time.Second,
		Now:                  clock.Now,
		OnStateChange: func(name string, from, to State) {
			if transitions != nil {
				*transitions = append(*transitions, to)
			}
		},
	})
}

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := newTestBreaker(clock, nil)

	// 1 failure out of 3 calls: below minimum calls, stays closed.
	_ = cb.Execute(succeed)
	_ = cb.Execute(succeed)
	_ = cb.Execute(fail)
	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.State())
	}

	// 2 of 4 = 50% reaches the threshold.
	if err := cb.Execute(fail); !errors.Is(err, errBoom) {
		t.Fatalf("expected the call error, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	if !errors.Is(err, ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("open breaker ran the call %d times", calls)
	}
}

func TestBreakerSlidingWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := newTestBreaker(clock, nil)

	// Old failures slide out of the window before the rate is reached.
	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	_ = cb.Execute(succeed)
	_ = cb.Execute(succeed) // window: F S S S -> 25%
	_ = cb.Execute(succeed) // window: S S S S -> 0%
	_ = cb.Execute(fail)    // window: S S S F -> 25%

	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.State())
	}
}

func TestBreakerHalfOpen(t *testing.T) {
	t.Run("trial success closes", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		var transitions []State
		cb := newTestBreaker(clock, &transitions)
		for i := 0; i < 4; i++ {
			_ = cb.Execute(fail)
		}

		clock.Advance(9 * time.Second)
		if cb.State() != StateOpen {
			t.Fatalf("state = %s before timeout, want open", cb.State())
		}

		clock.Advance(time.Second)
		if cb.State() != StateHalfOpen {
			t.Fatalf("state = %s after timeout, want half-open", cb.State())
		}

		if err := cb.Execute(succeed); err != nil {
			t.Fatalf("trial: %v", err)
		}
		if cb.State() != StateClosed {
			t.Fatalf("state = %s after trial success, want closed", cb.State())
		}

		want := []State{StateOpen, StateHalfOpen, StateClosed}
		if len(transitions) != len(want) {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
		for i := range want {
			if transitions[i] != want[i] {
				t.Fatalf("transitions = %v, want %v", transitions, want)
			}
		}
	})

	t.Run("trial failure reopens", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		cb := newTestBreaker(clock, nil)
		for i := 0; i < 4; i++ {
			_ = cb.Execute(fail)
		}
		clock.Advance(10 * time.Second)

		if err := cb.Execute(fail); !errors.Is(err, errBoom) {
			t.Fatalf("trial error = %v", err)
		}
		if cb.State() != StateOpen {
			t.Fatalf("state = %s, want open", cb.State())
		}
		if err := cb.Execute(succeed); !errors.Is(err, ErrOpenState) {
			t.Fatalf("expected ErrOpenState, got %v", err)
		}
	})

	t.Run("only one trial at a time", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		cb := newTestBreaker(clock, nil)
		for i := 0; i < 4; i++ {
			_ = cb.Execute(fail)
		}
		clock.Advance(10 * time.Second)

		release := make(chan struct{})
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- cb.Execute(func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		if err := cb.Execute(succeed); !errors.Is(err, ErrTooManyRequests) {
			t.Fatalf("expected ErrTooManyRequests, got %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("trial: %v", err)
		}
		if cb.State() != StateClosed {
			t.Fatalf("state = %s, want closed", cb.State())
		}
	})
}

func TestBreakerIsSuccessful(t *testing.T) {
	errIgnored := errors.New("ignored")
	cb := New(Settings{
		WindowSize:   2,
		MinimumCalls: 2,
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errIgnored) },
	})

	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return errIgnored })
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.State())
	}
}

func TestBreakerIsExcluded(t *testing.T) {
	errCanceled := errors.New("canceled")
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := New(Settings{
		WindowSize:   2,
		MinimumCalls: 2,
		OpenTimeout:  10 * time.Second,
		IsExcluded:   func(err error) bool { return errors.Is(err, errCanceled) },
		Now:          clock.Now,
	})

	t.Run("excluded outcomes are not recorded", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_ = cb.Execute(func() error { return errCanceled })
		}
		if cb.State() != StateClosed {
			t.Fatalf("state = %s, want closed", cb.State())
		}
		// The window is still empty: two real failures are needed to open.
		_ = cb.Execute(fail)
		if cb.State() != StateClosed {
			t.Fatalf("state = %s after one failure, want closed", cb.State())
		}
		_ = cb.Execute(fail)
		if cb.State() != StateOpen {
			t.Fatalf("state = %s, want open", cb.State())
		}
	})

	t.Run("excluded trial keeps half-open and frees the slot", func(t *testing.T) {
		clock.Advance(10 * time.Second)
		if cb.State() != StateHalfOpen {
			t.Fatalf("state = %s, want half-open", cb.State())
		}

		_ = cb.Execute(func() error { return errCanceled })
		if cb.State() != StateHalfOpen {
			t.Fatalf("state = %s after excluded trial, want half-open", cb.State())
		}

		if err := cb.Execute(succeed); err != nil {
			t.Fatalf("next trial rejected: %v", err)
		}
		if cb.State() != StateClosed {
			t.Fatalf("state = %s, want closed", cb.State())
		}
	})
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateHalfOpen: "half-open",
		StateOpen:     "open",
		State(42):     "unknown(42)",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

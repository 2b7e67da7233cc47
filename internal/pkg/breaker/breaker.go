// Package breaker implements a count-based circuit breaker.
//
// The breaker keeps the outcome of the last WindowSize calls. Once at least
// MinimumCalls outcomes are recorded and the failure percentage reaches
// FailureRateThreshold it opens and rejects every call for OpenTimeout. After
// that a single trial call is let through (half-open): success closes the
// breaker with a fresh window, failure opens it again.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrOpenState is returned while the breaker is open.
	ErrOpenState = errors.New("breaker: circuit is open")
	// ErrTooManyRequests is returned in half-open state while the trial is in flight.
	ErrTooManyRequests = errors.New("breaker: too many requests")
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type Settings struct {
	Name string

	// FailureRateThreshold is a percentage in (0, 100].
	FailureRateThreshold float64
	WindowSize           int
	MinimumCalls         int
	OpenTimeout          time.Duration

	// IsSuccessful classifies the error returned by the wrapped call.
	// Defaults to err == nil.
	IsSuccessful func(err error) bool
	// IsExcluded marks outcomes that are not recorded at all, such as a caller
	// giving up. An excluded half-open trial frees the slot for the next call.
	IsExcluded func(err error) bool
	// OnStateChange runs while the breaker is locked and must not call back into it.
	OnStateChange func(name string, from, to State)

	// Now is the clock used for the open timeout. Defaults to time.Now.
	Now func() time.Time
}

const (
	defaultFailureRate  = 50
	defaultWindowSize   = 10
	defaultMinimumCalls = 5
	defaultOpenTimeout  = 30 * time.Second
)

type CircuitBreaker struct {
	name          string
	failureRate   float64
	minimumCalls  int
	openTimeout   time.Duration
	isSuccessful  func(err error) bool
	isExcluded    func(err error) bool
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu            sync.Mutex
	state         State
	generation    uint64
	window        *window
	openedAt      time.Time
	trialInFlight bool
}

func New(st Settings) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:          st.Name,
		failureRate:   st.FailureRateThreshold,
		minimumCalls:  st.MinimumCalls,
		openTimeout:   st.OpenTimeout,
		isSuccessful:  st.IsSuccessful,
		isExcluded:    st.IsExcluded,
		onStateChange: st.OnStateChange,
		now:           st.Now,
	}

	if cb.failureRate <= 0 || cb.failureRate > 100 {
		cb.failureRate = defaultFailureRate
	}
	size := st.WindowSize
	if size <= 0 {
		size = defaultWindowSize
	}
	if cb.minimumCalls <= 0 {
		cb.minimumCalls = defaultMinimumCalls
	}
	if cb.minimumCalls > size {
		cb.minimumCalls = size
	}
	if cb.openTimeout <= 0 {
		cb.openTimeout = defaultOpenTimeout
	}
	if cb.isSuccessful == nil {
		cb.isSuccessful = func(err error) bool { return err == nil }
	}
	if cb.isExcluded == nil {
		cb.isExcluded = func(error) bool { return false }
	}
	if cb.now == nil {
		cb.now = time.Now
	}

	cb.window = newWindow(size)
	return cb
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// State reports the current state, promoting open to half-open when the open
// timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.refresh()
	return cb.state
}

// Execute runs fn if the breaker admits the call and records its outcome.
// A rejected call returns ErrOpenState or ErrTooManyRequests without running fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	generation, err := cb.beforeCall()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.afterCall(generation, false)
			panic(r)
		}
	}()

	err = fn()
	if err != nil && cb.isExcluded(err) {
		cb.release(generation)
		return err
	}
	cb.afterCall(generation, cb.isSuccessful(err))
	return err
}

// release gives back a half-open trial slot without recording an outcome.
func (cb *CircuitBreaker) release(generation uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if generation == cb.generation && cb.state == StateHalfOpen {
		cb.trialInFlight = false
	}
}

func (cb *CircuitBreaker) beforeCall() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.refresh()

	switch cb.state {
	case StateOpen:
		return cb.generation, ErrOpenState
	case StateHalfOpen:
		if cb.trialInFlight {
			return cb.generation, ErrTooManyRequests
		}
		cb.trialInFlight = true
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) afterCall(generation uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.refresh()
	// The state moved on while the call was running; its outcome is stale.
	if generation != cb.generation {
		return
	}

	switch cb.state {
	case StateClosed:
		cb.window.record(success)
		if cb.window.calls() >= cb.minimumCalls && cb.window.failureRate() >= cb.failureRate {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		if success {
			cb.setState(StateClosed)
		} else {
			cb.setState(StateOpen)
		}
	}
}

// refresh must be called with mu held.
func (cb *CircuitBreaker) refresh() {
	if cb.state == StateOpen && !cb.now().Before(cb.openedAt.Add(cb.openTimeout)) {
		cb.setState(StateHalfOpen)
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	cb.generation++
	cb.trialInFlight = false
	cb.window.reset()
	if to == StateOpen {
		cb.openedAt = cb.now()
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// window is a ring buffer over the most recent call outcomes.
type window struct {
	outcomes []bool // true means failure
	next     int
	filled   int
	failures int
}

func newWindow(size int) *window {
	return &window{outcomes: make([]bool, size)}
}

func (w *window) record(success bool) {
	failed := !success
	if w.filled == len(w.outcomes) {
		if w.outcomes[w.next] {
			w.failures--
		}
	} else {
		w.filled++
	}
	w.outcomes[w.next] = failed
	if failed {
		w.failures++
	}
	w.next = (w.next + 1) % len(w.outcomes)
}

func (w *window) calls() int { return w.filled }

func (w *window) failureRate() float64 {
	if w.filled == 0 {
		return 0
	}
	return float64(w.failures) * 100 / float64(w.filled)
}

func (w *window) reset() {
	for i := range w.outcomes {
		w.outcomes[i] = false
	}
	w.next, w.filled, w.failures = 0, 0, 0
}

// Package breaker implements the per-provider circuit breaker used by the
// manager to isolate failing providers.
//
// Each breaker is a small state machine:
//
//   - Closed: normal operation, calls permitted. Consecutive failures are
//     counted; any success resets the counter.
//   - Open: calls forbidden. After the cool-down elapses the breaker moves
//     to HalfOpen on the next status check.
//   - HalfOpen: exactly one trial call is permitted. Success closes the
//     breaker, failure reopens it for another cool-down period.
//
// Only actual invocation outcomes move the state machine. Validation skips
// and health-check skips never touch it.
package breaker

import (
	"sync"
	"time"
)

// State captures circuit breaker states.
type State int

const (
	// StateClosed indicates normal operation.
	StateClosed State = iota
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen
	// StateHalfOpen indicates a single trial call is permitted.
	StateHalfOpen
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Default thresholds applied when the configuration leaves them zero.
const (
	DefaultFailureThreshold = 5
	DefaultCoolDown         = 60 * time.Second
)

// Config controls the thresholds for state transitions.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold int

	// CoolDown is how long the breaker stays open before permitting a
	// trial call.
	CoolDown time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.CoolDown <= 0 {
		c.CoolDown = DefaultCoolDown
	}
	return c
}

// Breaker is the failure-isolation state machine for a single provider.
// All methods are safe for concurrent use; state for one provider is
// independent of every other provider.
type Breaker struct {
	mu            sync.Mutex
	cfg           Config
	state         State
	failures      int
	lastFailure   time.Time
	trialInFlight bool

	now func() time.Time // injectable for tests
}

// New creates a breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
}

// refresh applies the Open -> HalfOpen transition once the cool-down has
// elapsed. Callers must hold b.mu.
func (b *Breaker) refresh() {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.CoolDown {
		b.state = StateHalfOpen
		b.trialInFlight = false
	}
}

// State returns the current state, applying the cool-down transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Allow reports whether a call may proceed right now. In HalfOpen it
// reserves the single trial slot, so at most one concurrent caller gets
// true until the trial outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.trialInFlight = false
	b.state = StateClosed
}

// RecordFailure records a failed call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()
	b.trialInFlight = false

	if b.state == StateHalfOpen {
		// Trial failed, back to Open for another cool-down.
		b.state = StateOpen
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.state = StateOpen
	}
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

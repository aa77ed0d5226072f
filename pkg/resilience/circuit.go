package resilience

import (
	"sync"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
)

// CircuitState is one of the three states a breaker can be in.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards a named downstream dependency, tripping open after
// FailureThreshold consecutive failures and probing with at most
// HalfOpenMaxCalls calls after TimeoutSeconds before closing again on
// SuccessThreshold consecutive successes (spec §4.9).
type CircuitBreaker struct {
	name string
	cfg  config.CircuitConfig

	mu              sync.Mutex
	state           CircuitState
	consecutiveFail int
	consecutiveOK   int
	halfOpenInFlight int
	openedAt        time.Time
}

// NewCircuitBreaker constructs a breaker starting in the closed state.
func NewCircuitBreaker(name string, cfg config.CircuitConfig) *CircuitBreaker {
	return &CircuitBreaker{name: name, cfg: cfg, state: CircuitClosed}
}

// State returns the breaker's current state, transitioning open->half_open
// as a side effect if the cooldown has elapsed.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

func (b *CircuitBreaker) maybeHalfOpenLocked() {
	if b.state == CircuitOpen && time.Since(b.openedAt) >= b.cfg.Timeout() {
		b.state = CircuitHalfOpen
		b.consecutiveOK = 0
		b.halfOpenInFlight = 0
	}
}

// Allow reports whether a call may proceed, reserving a half-open probe
// slot if applicable. Callers must pair a true result with a RecordSuccess
// or RecordFailure call.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()

	switch b.state {
	case CircuitOpen:
		return apierr.IllegalState("circuit_breaker", b.name, "circuit is open").
			WithRetryAfter(int(b.cfg.Timeout().Seconds()))
	case CircuitHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return apierr.IllegalState("circuit_breaker", b.name, "half-open probe limit reached").
				WithRetryAfter(1)
		}
		b.halfOpenInFlight++
		return nil
	default:
		return nil
	}
}

// RecordSuccess registers a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFail = 0
	switch b.state {
	case CircuitHalfOpen:
		b.halfOpenInFlight--
		b.consecutiveOK++
		if b.consecutiveOK >= b.cfg.SuccessThreshold {
			b.state = CircuitClosed
			b.consecutiveOK = 0
		}
	case CircuitClosed:
		// nothing to track beyond the failure streak reset above
	}
}

// RecordFailure registers a failed call, tripping the breaker open once the
// failure threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.halfOpenInFlight--
		b.trip()
		return
	}

	b.consecutiveFail++
	if b.consecutiveFail >= b.cfg.FailureThreshold {
		b.trip()
	}
}

func (b *CircuitBreaker) trip() {
	b.state = CircuitOpen
	b.openedAt = time.Now()
	b.consecutiveFail = 0
	b.consecutiveOK = 0
	b.halfOpenInFlight = 0
}

// Reset forces the breaker back to closed, used by orchestratorctl's manual
// circuit-reset operation (spec §6).
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = CircuitClosed
	b.consecutiveFail = 0
	b.consecutiveOK = 0
	b.halfOpenInFlight = 0
}

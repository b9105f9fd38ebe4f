package mezport

import (
	"sync"
	"time"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns the conventional lowercase state name.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// CircuitBreaker guards the export API dependency across fetches. One
// instance is shared by every concurrent fetch on a Client; all operations
// take the same mutex, so failure counts and state transitions never race.
//
// Recovery is probed lazily: an open breaker flips to half-open on the
// first Allow call after the recovery timeout, there is no background
// timer. In half-open a single success closes the circuit and a single
// failure reopens it, which keeps recovery probing to one trial request.
type CircuitBreaker struct {
	mu          sync.Mutex
	config      CircuitBreakerConfig
	state       CircuitState
	failures    int
	lastFailure time.Time
}

// BreakerSnapshot is a point-in-time copy of breaker state for health and
// monitoring display.
type BreakerSnapshot struct {
	State            CircuitState
	Failures         int
	LastFailure      time.Time
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// NewCircuitBreaker creates a new circuit breaker. Zero config fields get
// defaults (5 failures, 60s recovery). Breakers start closed and live for
// the process lifetime; state does not survive restarts.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Allow reports whether a fetch attempt may proceed, transitioning an open
// breaker to half-open once the recovery timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastFailure) >= cb.config.RecoveryTimeout {
			cb.state = StateHalfOpen
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful fetch. In half-open the single probe
// success closes the circuit; in closed it resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
	}
}

// RecordFailure records a failed fetch. A closed breaker opens once the
// failure count reaches the threshold; a half-open breaker reopens on the
// first failure, the threshold does not apply to recovery probes.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
		}
	case StateHalfOpen:
		cb.state = StateOpen
	}
}

// Snapshot returns a consistent copy of the breaker state for observability.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerSnapshot{
		State:            cb.state,
		Failures:         cb.failures,
		LastFailure:      cb.lastFailure,
		FailureThreshold: cb.config.FailureThreshold,
		RecoveryTimeout:  cb.config.RecoveryTimeout,
	}
}

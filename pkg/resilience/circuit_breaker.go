// Package resilience provides the circuit breaker shielding the
// upstream bibliographic search API.
package resilience

import (
	"sync"
	"time"
)

const (
	minFailureThreshold = 1
	minOpenSeconds      = 5
)

// CircuitBreaker gates upstream calls after repeated failures. The
// gate is purely time-based: requests are allowed whenever the current
// time has reached openUntil. The first allowed call after the
// cool-off acts as the half-open probe; its outcome either resets the
// breaker or re-opens it.
type CircuitBreaker struct {
	failureThreshold int
	openDuration     time.Duration

	mu           sync.Mutex
	failureCount int
	openUntil    time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a breaker that opens for openSeconds after
// failureThreshold consecutive failures. The threshold is clamped to a
// minimum of 1 and the cool-off to a minimum of 5 seconds.
func NewCircuitBreaker(failureThreshold, openSeconds int) *CircuitBreaker {
	if failureThreshold < minFailureThreshold {
		failureThreshold = minFailureThreshold
	}
	if openSeconds < minOpenSeconds {
		openSeconds = minOpenSeconds
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		openDuration:     time.Duration(openSeconds) * time.Second,
		now:              time.Now,
	}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return !cb.now().Before(cb.openUntil)
}

// RecordSuccess resets the failure count and clears the open window.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.openUntil = time.Time{}
}

// RecordFailure increments the failure count and opens the breaker
// once the threshold is reached. The count is not reset on opening; a
// later success clears it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	if cb.failureCount >= cb.failureThreshold {
		cb.openUntil = cb.now().Add(cb.openDuration)
	}
}

// FailureCount returns the current consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

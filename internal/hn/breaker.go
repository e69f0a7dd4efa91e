package hn

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a circuit breaker counting consecutive transient failures
// across every caller of the client. After threshold failures it opens for
// openFor, then admits a single probe; the probe's outcome decides whether
// it closes again. Take it by reference so tests can inject a fresh one.
type Breaker struct {
	threshold int
	openFor   time.Duration

	mu       sync.Mutex
	now      func() time.Time
	state    breakerState
	failures int
	until    time.Time
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(threshold int, openFor time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		openFor:   openFor,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. While open, everything is
// refused until the open deadline passes; after that exactly one probe is
// admitted at a time until an outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Before(b.until) {
			return false
		}
		b.state = stateHalfOpen
		b.probing = true
		return true
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// Success records a reachable upstream: the failure counter resets and an
// open breaker closes.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = 0
	b.probing = false
}

// Failure records a transient failure. The counter increments in the
// closed state; a failed half-open probe reopens immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.trip()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.trip()
	}
}

// Cancel releases a half-open probe slot without touching the failure
// counter. Caller cancellation proves nothing about the upstream.
func (b *Breaker) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *Breaker) trip() {
	b.state = stateOpen
	b.failures = 0
	b.probing = false
	b.until = b.now().Add(b.openFor)
}

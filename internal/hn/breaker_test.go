package hn

import (
	"testing"
	"time"
)

func newTestBreaker(threshold int, openFor time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker(threshold, openFor)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 4; i++ {
		if !b.Allow() {
			t.Fatalf("call %d should be admitted", i)
		}
		b.Failure()
	}

	// Still closed after 4 failures
	if !b.Allow() {
		t.Fatal("breaker should still be closed after 4 failures")
	}
	b.Failure()

	// Fifth consecutive failure opens it
	if b.Allow() {
		t.Fatal("breaker should be open after 5 failures")
	}
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	b, _ := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 4; i++ {
		b.Allow()
		b.Failure()
	}
	b.Allow()
	b.Success()

	// Counter reset: four more failures must not open it
	for i := 0; i < 4; i++ {
		b.Allow()
		b.Failure()
	}
	if !b.Allow() {
		t.Fatal("breaker should be closed, counter was reset by success")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, now := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.Allow()
		b.Failure()
	}
	if b.Allow() {
		t.Fatal("breaker should be open")
	}

	// Before the deadline nothing is admitted
	*now = now.Add(29 * time.Second)
	if b.Allow() {
		t.Fatal("breaker should refuse before the open deadline")
	}

	// After the deadline exactly one probe is admitted
	*now = now.Add(2 * time.Second)
	if !b.Allow() {
		t.Fatal("probe should be admitted after the deadline")
	}
	if b.Allow() {
		t.Fatal("only one probe may be in flight")
	}

	// Probe success closes the breaker
	b.Success()
	if !b.Allow() {
		t.Fatal("breaker should be closed after a successful probe")
	}
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.Allow()
		b.Failure()
	}

	*now = now.Add(31 * time.Second)
	if !b.Allow() {
		t.Fatal("probe should be admitted")
	}
	b.Failure()

	if b.Allow() {
		t.Fatal("breaker should reopen after a failed probe")
	}

	// And stay open for the full window again
	*now = now.Add(29 * time.Second)
	if b.Allow() {
		t.Fatal("breaker should still be open")
	}
	*now = now.Add(2 * time.Second)
	if !b.Allow() {
		t.Fatal("next probe should be admitted")
	}
}

func TestBreakerCancelReleasesProbe(t *testing.T) {
	b, now := newTestBreaker(5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.Allow()
		b.Failure()
	}

	*now = now.Add(31 * time.Second)
	if !b.Allow() {
		t.Fatal("probe should be admitted")
	}

	// A cancelled probe proves nothing; the slot frees up for another
	b.Cancel()
	if !b.Allow() {
		t.Fatal("a new probe should be admitted after cancellation")
	}
}

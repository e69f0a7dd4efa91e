package hn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrCircuitOpen is returned when the circuit breaker refuses a call
// without contacting the upstream.
var ErrCircuitOpen = errors.New("hn: circuit open")

// StatusError is a non-2xx response from the upstream.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	switch {
	case e.Code >= 500:
		return true
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests:
		return true
	}
	return false
}

// transient classifies an attempt failure. Retry-eligible: 5xx, 408, 429,
// transport errors, and per-attempt timeouts. Caller cancellation and
// other 4xx responses are not.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	return false
}

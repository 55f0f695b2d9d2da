package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// RequestError is a non-2xx answer from the integration platform or the CRM
// behind a connection. Status is 0 when no response was received.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Retryable reports whether the same request may succeed later.
func (e *RequestError) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// StatusOf returns the upstream status carried by err, or 0.
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsRetryable classifies transport timeouts and retryable upstream statuses.
// Caller cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Retryable()
	}
	return false
}

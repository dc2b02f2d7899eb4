package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// StatusError is a non-success reply from the model server. It is never
// retried: the server rejected the request rather than being unavailable.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("model server returned status %d", e.Code)
	}
	return fmt.Sprintf("model server returned status %d: %s", e.Code, e.Body)
}

type failureKind int

const (
	failureConnection failureKind = iota
	failureTimeout
	failureStatus
	failureCancelled
)

func (k failureKind) String() string {
	switch k {
	case failureTimeout:
		return "timeout"
	case failureStatus:
		return "status"
	case failureCancelled:
		return "cancelled"
	default:
		return "connection"
	}
}

// classify decides how an attempt failed. parent is the caller's context;
// cancellation there stops retrying.
func classify(parent context.Context, err error) failureKind {
	if parent.Err() != nil {
		return failureCancelled
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return failureStatus
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}

	return failureConnection
}

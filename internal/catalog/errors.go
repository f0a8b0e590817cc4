package catalog

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates a network-level failure (timeout, refused
// connection) talking to an upstream catalog. These are the only errors the
// cache layer will retry.
var ErrUnavailable = errors.New("upstream unavailable")

// ErrNotFound indicates the upstream answered but has no record for the
// requested identifier or search. During reconciliation this is a miss, not
// a failure.
var ErrNotFound = errors.New("record not found")

// RejectedError is a structured non-2xx (or malformed) upstream response.
// Rejections are never retried.
type RejectedError struct {
	Source string
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected request: HTTP %d: %s", e.Source, e.Status, e.Reason)
}

// Unavailablef wraps a transport error so callers can match ErrUnavailable
// while keeping the cause in the chain.
func Unavailablef(source string, err error) error {
	return fmt.Errorf("%s: %w: %w", source, ErrUnavailable, err)
}

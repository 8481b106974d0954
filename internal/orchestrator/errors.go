package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNoBackends means nothing is registered at all; a configuration error
// that fails the request before any attempt is made.
var ErrNoBackends = errors.New("no backends registered")

// NoSuitableBackendError means the computed try-order resolved to nothing:
// the explicitly requested backend, or every configured candidate, is not
// currently registered.
type NoSuitableBackendError struct {
	Requested string
}

func (e *NoSuitableBackendError) Error() string {
	if e.Requested != "" {
		return fmt.Sprintf("requested backend %q is not registered", e.Requested)
	}
	return "no configured backend is registered"
}

// AllBackendsFailedError aggregates an exhausted try-order. Attempts equals
// the number of backends actually tried.
type AllBackendsFailedError struct {
	Attempts int
	LastErr  error
}

func (e *AllBackendsFailedError) Error() string {
	return fmt.Sprintf("all backends failed after %d attempt(s): %v", e.Attempts, e.LastErr)
}

// Unwrap returns the last underlying backend error.
func (e *AllBackendsFailedError) Unwrap() error {
	return e.LastErr
}

package core

import (
	"errors"
	"fmt"
)

// BackendError wraps a failure from one provider so callers can tell which
// backend misbehaved without losing the underlying error.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func NewBackendError(backend, op string, err error) *BackendError {
	return &BackendError{Backend: backend, Op: op, Err: err}
}

// AsBackendError unwraps err looking for a BackendError.
func AsBackendError(err error) (*BackendError, bool) {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr, true
	}
	return nil, false
}

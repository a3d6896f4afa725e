// Package errs holds the error taxonomy shared by the engine packages.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a ticket, order, account or symbol cannot be resolved
	ErrNotFound = errors.New("not found")
	// ErrTimeout is returned when a correlated result did not arrive in time
	ErrTimeout = errors.New("timeout")
	// ErrInvalidRequest marks structurally invalid requests
	ErrInvalidRequest = errors.New("invalid request")
	// ErrWorkerStopped is recorded for commands dropped by a stopping worker
	ErrWorkerStopped = errors.New("worker stopped")
)

// SessionError is a failed venue login. It is fatal to the worker.
type SessionError struct {
	Account string
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: session: %v", e.Account, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// VenueRejection is a non-success result code returned by the venue
type VenueRejection struct {
	Account string
	Code    int
	Comment string
}

func (e *VenueRejection) Error() string {
	return fmt.Sprintf("%s: %s", e.Account, e.Comment)
}

// DirectoryError wraps a failure of the account directory
type DirectoryError struct {
	Op  string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// Invalid wraps ErrInvalidRequest with a reason
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a reason
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

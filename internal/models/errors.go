package models

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the stores and the mutation coordinator.
// Transport layers classify with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrTaskNotFound    = errors.New("task not found")
	ErrForbidden       = errors.New("task belongs to another user")
	ErrUnauthenticated = errors.New("authentication required")
	ErrStorage         = errors.New("storage unavailable")
)

// Sentinel errors for request validation. All of them match ErrValidation.
var (
	ErrMissingTitle    = fmt.Errorf("%w: title is required", ErrValidation)
	ErrInvalidPriority = fmt.Errorf("%w: priority must be one of Low, Medium, High", ErrValidation)
	ErrMissingActor    = fmt.Errorf("%w: actor is required", ErrValidation)
	ErrInvalidAction   = fmt.Errorf("%w: action must be one of create, update, delete", ErrValidation)
)

// ErrFieldTooLong returns a validation error for a field exceeding its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%w: %s exceeds maximum length of %d", ErrValidation, field, maxLen)
}

// storageError matches ErrStorage while keeping the backend cause reachable.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string { return e.op + ": " + e.err.Error() }

func (e *storageError) Unwrap() []error { return []error{ErrStorage, e.err} }

// StorageError wraps a backend failure for op. Errors that already carry a
// domain kind (not found, forbidden, validation, storage) pass through unchanged.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range []error{ErrValidation, ErrTaskNotFound, ErrForbidden, ErrStorage} {
		if errors.Is(err, kind) {
			return err
		}
	}

	return &storageError{op: op, err: err}
}

package progress

import (
	"errors"
	"fmt"
)

// Error kinds returned by the scheduler. Every error returned by an
// operation wraps exactly one of these, so callers switch on errors.Is.
var (
	// ErrNotFound indicates that a referenced word or topic does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a request that was rejected before any
	// state was touched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConcurrencyConflict indicates that a write kept losing the
	// optimistic version check after the transparent retry.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)

// ServiceError wraps errors from the scheduler with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "record_review", "build_study_session")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func invalidArgument(op, message string) error {
	return &ServiceError{Operation: op, Message: message, Err: ErrInvalidArgument}
}

func notFound(op, message string, cause error) error {
	return &ServiceError{Operation: op, Message: message, Err: fmt.Errorf("%w: %w", ErrNotFound, cause)}
}

func conflict(op string, cause error) error {
	return &ServiceError{
		Operation: op,
		Message:   "progress was modified concurrently",
		Err:       fmt.Errorf("%w: %w", ErrConcurrencyConflict, cause),
	}
}

func internal(op, message string, cause error) error {
	return &ServiceError{Operation: op, Message: message, Err: cause}
}

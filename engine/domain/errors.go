package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying failures across the pipeline.
var (
	// ErrSourceUnavailable means the message feed was unreachable or
	// returned a malformed payload.
	ErrSourceUnavailable = errors.New("message source unavailable")
	// ErrDependency means an embedding, vector-store, or completion call
	// failed outright.
	ErrDependency = errors.New("dependency call failed")
	// ErrDependencyTimeout means a dependency call exceeded its deadline.
	ErrDependencyTimeout = errors.New("dependency call timed out")
	// ErrIndexEmpty means the vector store holds no points at all,
	// distinct from a query that simply matched nothing.
	ErrIndexEmpty = errors.New("index is empty")
	// ErrBuildInFlight means an index build was requested while another
	// one is still running.
	ErrBuildInFlight = errors.New("index build already in flight")

	ErrQuestionEmpty   = errors.New("question is empty")
	ErrQuestionTooLong = errors.New("question too long")
	ErrMessageInvalid  = errors.New("message missing id or text")
)

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package service

import (
	"fmt"
)

// BookServiceError is a custom error type for book service errors. It names
// the failed operation and wraps the underlying cause so callers can still
// match domain and store sentinels with errors.Is.
type BookServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for BookServiceError.
func (e *BookServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("book service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("book service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *BookServiceError) Unwrap() error {
	return e.Err
}

// NewBookServiceError creates a new BookServiceError.
func NewBookServiceError(operation, message string, err error) *BookServiceError {
	return &BookServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

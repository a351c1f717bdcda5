// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidISBNFormat is returned when an ISBN does not contain
	// exactly 10 or 13 digits after separators are stripped.
	ErrInvalidISBNFormat = fmt.Errorf("%w: ISBN must be 10 or 13 digits", ErrValidation)

	// ErrInvalidISBNChecksum is returned when an ISBN has the right shape
	// but its check digit does not match.
	ErrInvalidISBNChecksum = fmt.Errorf("%w: ISBN checksum mismatch", ErrValidation)

	// ErrInvalidQuantity is returned when a copy count passed to an
	// inventory operation is zero or negative.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", ErrValidation)

	// ErrInvariantViolation is returned when reconstructed state breaks the
	// available+borrowed==total invariant. This indicates corrupt persisted
	// data, not a caller mistake, and is never expected in normal operation.
	ErrInvariantViolation = errors.New("inventory invariant violation")
)

// State-conflict errors. These represent operations that are legal in
// principle but illegal in the aggregate's current status or quantity.
// Callers can recover by choosing a different action.
var (
	// ErrBookNotAvailable is returned when reserving a book whose status
	// is not AVAILABLE.
	ErrBookNotAvailable = errors.New("book is not available for reservation")

	// ErrInsufficientAvailable is returned when a reservation would drive
	// the available count below zero.
	ErrInsufficientAvailable = errors.New("insufficient available copies")

	// ErrExceedsTotal is returned when a release would push the available
	// count above the total count.
	ErrExceedsTotal = errors.New("available copies cannot exceed total")

	// ErrExceedsAvailable is returned when removing more copies than are
	// currently available.
	ErrExceedsAvailable = errors.New("cannot remove more copies than available")

	// ErrNothingToRelease is returned when releasing a reservation while no
	// copies are borrowed.
	ErrNothingToRelease = errors.New("no borrowed copies to release")

	// ErrBookDiscontinued is returned when adding copies to a discontinued book.
	ErrBookDiscontinued = errors.New("book is discontinued")

	// ErrNotDiscontinued is returned when reactivating a book that is not
	// discontinued.
	ErrNotDiscontinued = errors.New("book is not discontinued")

	// ErrHasBorrowedCopies is returned when discontinuing or deleting a book
	// that still has borrowed copies.
	ErrHasBorrowedCopies = errors.New("book has borrowed copies")
)

// ValidationError carries field-level context for a validation failure.
// It wraps ErrValidation (or a more specific sentinel) so callers can branch
// with errors.Is while still seeing which field was rejected.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrValidation
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// IsStateConflict reports whether the error represents an operation that is
// illegal in the aggregate's current state, as opposed to malformed input.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrBookNotAvailable) ||
		errors.Is(err, ErrInsufficientAvailable) ||
		errors.Is(err, ErrExceedsTotal) ||
		errors.Is(err, ErrExceedsAvailable) ||
		errors.Is(err, ErrNothingToRelease) ||
		errors.Is(err, ErrBookDiscontinued) ||
		errors.Is(err, ErrNotDiscontinued) ||
		errors.Is(err, ErrHasBorrowedCopies)
}

package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is empty or malformed.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidCardState is returned when a card's memory state violates its
	// invariants: negative stability, difficulty out of range, unknown
	// repetition state, or inconsistent review counters.
	ErrInvalidCardState = errors.New("invalid card state")

	// ErrInvalidOutcome is returned when a review outcome is neither pass nor fail.
	ErrInvalidOutcome = errors.New("invalid review outcome")

	// ErrInvalidRating is returned when a rating is outside Again..Easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidCardContent is returned when card content is not valid JSON.
	ErrInvalidCardContent = errors.New("invalid card content")
)

// ValidationError names the field that failed validation. It wraps one of
// the sentinel errors above.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Unwrap returns the wrapped sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

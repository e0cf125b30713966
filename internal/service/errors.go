package service

import (
	"errors"
	"fmt"
)

// Common service errors.
// The API layer maps these to HTTP status codes.
var (
	// ErrEmptyDeck indicates an import carried no cards.
	ErrEmptyDeck = errors.New("deck has no cards")

	// ErrCardDeckMismatch indicates an imported card names a different deck
	// than the one being imported.
	ErrCardDeckMismatch = errors.New("card belongs to a different deck")
)

// ServiceError wraps a failure with the service and operation it came from.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

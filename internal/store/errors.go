package store

import (
	"errors"
	"fmt"
)

// Errors returned by every CardStore and DeckStore implementation. Drivers
// map their own errors onto these so callers never inspect driver codes.
var (
	// ErrNotFound is the parent of the entity-specific not-found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate means a deck or card ID is already taken.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity means a row was rejected, either before the write or
	// by a check or foreign-key constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed wraps begin, commit and rollback failures.
	ErrTransactionFailed = errors.New("transaction failed")

	ErrDeckNotFound = fmt.Errorf("%w: deck", ErrNotFound)
	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)
)

// IsNotFoundError reports whether err is any not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError records which entity and operation a storage failure belongs to.
type StoreError struct {
	Entity    string // "card", "deck", "review_log"
	Operation string // "create", "save_review", "reset", ...
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Entity, e.Operation, e.Message)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Entity, e.Operation, e.Message, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

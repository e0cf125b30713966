// Package study_session runs study sessions: it snapshots the due cards of a
// deck into a queue, schedules each rated card and persists the result before
// moving on.
package study_session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
)

// CardRepository is the storage collaborator a session needs.
// store.CardStore satisfies it.
type CardRepository interface {
	// LoadCandidateCards returns the deck's cards of the given type (empty
	// matches all) that are New or due at or before now.
	LoadCandidateCards(
		ctx context.Context,
		deckID string,
		cardType string,
		now time.Time,
	) ([]*domain.CardMemoryState, error)

	// SaveReview durably stores a card's new memory state and its review log.
	SaveReview(ctx context.Context, state *domain.CardMemoryState, entry *domain.ReviewLogEntry) error
}

// Clock returns the current time.
type Clock func() time.Time

// Order selects how the session queue is initially arranged.
type Order string

const (
	// OrderChronological sorts by due time, keeping discovery order for ties.
	OrderChronological Order = "chronological"
	// OrderRandomized shuffles the queue.
	OrderRandomized Order = "randomized"
)

// IsValid reports whether o is a known ordering. Empty means chronological.
func (o Order) IsValid() bool {
	return o == "" || o == OrderChronological || o == OrderRandomized
}

// Filters select which cards enter a session and in what order.
type Filters struct {
	CardType string `json:"card_type"`
	Order    Order  `json:"order"`
}

// State is the lifecycle state of a Controller.
type State int

const (
	StateSetup State = iota
	StateActive
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionHandle identifies a started session.
type SessionHandle struct {
	ID        string    `json:"id"`
	DeckID    string    `json:"deck_id"`
	Filters   Filters   `json:"filters"`
	Size      int       `json:"size"`
	StartedAt time.Time `json:"started_at"`
}

// RateResult describes what one rating did to the session.
type RateResult struct {
	Card      *domain.CardMemoryState `json:"card"`
	Log       *domain.ReviewLogEntry  `json:"log"`
	Requeued  bool                    `json:"requeued"`
	Remaining int                     `json:"remaining"`
	Complete  bool                    `json:"complete"`
}

// Common error types for the study session controller.
var (
	// ErrNoCardsDue indicates the filtered candidate set was empty; no session started.
	ErrNoCardsDue = errors.New("no cards due")

	// ErrSessionNotInSetup is returned by StartSession outside the Setup state.
	ErrSessionNotInSetup = errors.New("session is not in setup")

	// ErrNoActiveSession is returned by Rate when no card is current.
	ErrNoActiveSession = errors.New("no active session")

	// ErrRateInProgress is returned when Rate is called while another Rate
	// for the same session has not finished.
	ErrRateInProgress = errors.New("a rating is already in progress")

	// ErrInvalidFilters is returned for an unknown ordering mode.
	ErrInvalidFilters = errors.New("invalid session filters")
)

// ServiceError wraps errors from the study session controller with the
// operation that failed.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start_session", "rate")
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

// NewStartSessionError returns a new ServiceError for the start_session operation.
func NewStartSessionError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "start_session", Message: message, Err: err}
}

// NewRateError returns a new ServiceError for the rate operation.
func NewRateError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "rate", Message: message, Err: err}
}

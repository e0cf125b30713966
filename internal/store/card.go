package store

import (
	"context"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
)

// CardStore defines the interface for card content and memory-state persistence.
//
// Every card has exactly one memory state. CreateMultiple creates both, the
// memory state starting as New; afterwards only SaveReview and ResetDeck change it.
type CardStore interface {
	// CreateMultiple saves multiple cards, each with a fresh New memory state
	// due at its creation time. The operation is atomic: either all cards are
	// created or none. Returns ErrInvalidEntity wrapping the validation error if
	// any card is invalid and ErrDuplicate if any card ID already exists.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card's content by its ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id string) (*domain.Card, error)

	// GetMemoryState retrieves the memory state of a card.
	// Returns ErrCardNotFound if the card does not exist.
	GetMemoryState(ctx context.Context, cardID string) (*domain.CardMemoryState, error)

	// LoadCandidateCards returns the memory states of every card in the deck
	// that matches cardType (empty matches all types) and is either New or due
	// at or before now. Results are ordered by due time, then by import order.
	LoadCandidateCards(
		ctx context.Context,
		deckID string,
		cardType string,
		now time.Time,
	) ([]*domain.CardMemoryState, error)

	// SaveReview writes a card's new memory state and appends the review log
	// entry in a single transaction.
	// Returns ErrCardNotFound if the card does not exist.
	SaveReview(ctx context.Context, state *domain.CardMemoryState, entry *domain.ReviewLogEntry) error

	// SaveSchedule writes a card's due time and scheduled interval and leaves
	// the rest of its memory state alone. It appends no review log.
	// Returns ErrCardNotFound if the card does not exist.
	SaveSchedule(ctx context.Context, state *domain.CardMemoryState) error

	// ListReviewLogs returns a card's review history, oldest first.
	ListReviewLogs(ctx context.Context, cardID string) ([]*domain.ReviewLogEntry, error)

	// CountDueByDeck returns, per deck ID, how many cards are New or due at or
	// before now. Decks with no due cards are omitted.
	CountDueByDeck(ctx context.Context, now time.Time) (map[string]int, error)

	// ResetDeck puts every card of the deck back to New, due at now, and
	// returns how many cards were reset. Review history is kept.
	ResetDeck(ctx context.Context, deckID string, now time.Time) (int, error)
}

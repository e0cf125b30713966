package store

import (
	"context"

	"github.com/phrazzld/deckstudy/internal/domain"
)

// DeckStore defines the interface for deck data persistence.
type DeckStore interface {
	// Create saves a newly unlocked deck.
	// Returns ErrDuplicate if a deck with the same ID already exists.
	Create(ctx context.Context, deck *domain.Deck) error

	// GetByID retrieves a deck by its ID.
	// Returns ErrDeckNotFound if the deck does not exist.
	GetByID(ctx context.Context, id string) (*domain.Deck, error)

	// List returns every unlocked deck ordered by unlock time.
	List(ctx context.Context) ([]*domain.Deck, error)
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

var (
	// ErrDeckIDEmpty is returned when a deck ID is empty.
	ErrDeckIDEmpty = fmt.Errorf("%w: deck ID cannot be empty", ErrValidation)

	// ErrDeckTitleEmpty is returned when a deck title is empty.
	ErrDeckTitleEmpty = fmt.Errorf("%w: deck title cannot be empty", ErrValidation)
)

// Deck is a set of cards the user has unlocked.
type Deck struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// NewDeck creates a Deck unlocked at now.
func NewDeck(id, title string, now time.Time) (*Deck, error) {
	deck := &Deck{
		ID:         id,
		Title:      strings.TrimSpace(title),
		UnlockedAt: now.UTC(),
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// Validate checks if the Deck has valid data.
func (d *Deck) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrDeckIDEmpty
	}
	if d.Title == "" {
		return ErrDeckTitleEmpty
	}
	return nil
}

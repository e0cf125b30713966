package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty.
	ErrCardIDEmpty = fmt.Errorf("%w: card ID cannot be empty", ErrValidation)

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty.
	ErrCardDeckIDEmpty = fmt.Errorf("%w: card deck ID cannot be empty", ErrValidation)

	// ErrCardContentEmpty is returned when a card's content is empty.
	ErrCardContentEmpty = fmt.Errorf("%w: card content cannot be empty", ErrValidation)

	// ErrCardContentInvalid is returned when a card's content is not valid JSON.
	ErrCardContentInvalid = fmt.Errorf("%w: card content must be valid JSON", ErrValidation)
)

// Well-known card type tags. Type is an opaque string: stores and the session
// controller only compare it for equality.
const (
	CardTypeWord   = "word"
	CardTypePhrase = "phrase"
)

// Card is a flashcard belonging to an unlocked deck. Content is stored as a
// JSON document so word and phrase cards can carry different fields.
type Card struct {
	ID        string          `json:"id"`
	DeckID    string          `json:"deck_id"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// CardContent is the usual shape of Card.Content.
type CardContent struct {
	Front         string `json:"front"`
	Back          string `json:"back"`
	ContextPhrase string `json:"context_phrase,omitempty"`
}

// NewCard creates a Card with the given identity and content.
// IDs are supplied by the caller because decks ship with stable card IDs.
func NewCard(id, deckID, cardType string, content json.RawMessage, now time.Time) (*Card, error) {
	card := &Card{
		ID:        id,
		DeckID:    deckID,
		Type:      cardType,
		Content:   content,
		CreatedAt: now.UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrCardIDEmpty
	}

	if strings.TrimSpace(c.DeckID) == "" {
		return ErrCardDeckIDEmpty
	}

	if len(c.Content) == 0 {
		return ErrCardContentEmpty
	}

	if !json.Valid(c.Content) {
		return ErrCardContentInvalid
	}

	return nil
}

// DecodeContent unmarshals Content into a CardContent.
func (c *Card) DecodeContent() (CardContent, error) {
	var content CardContent
	if err := json.Unmarshal(c.Content, &content); err != nil {
		return CardContent{}, errors.Join(ErrInvalidCardContent, err)
	}
	return content, nil
}

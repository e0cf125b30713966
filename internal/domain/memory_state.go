package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Difficulty bounds for any card that has been reviewed at least once.
const (
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
)

// CardMemoryState is the scheduler's view of a single card: how well it is
// remembered and when it should be seen next. DeckID, CardType and CreatedAt
// are carried for storage and filtering; the scheduling formulas ignore them.
type CardMemoryState struct {
	ID            string          `json:"id"`
	DeckID        string          `json:"deck_id"`
	CardType      string          `json:"card_type"`
	State         RepetitionState `json:"state"`
	Stability     float64         `json:"stability"`  // Days until recall probability falls to 90%.
	Difficulty    float64         `json:"difficulty"` // 1 (easy) to 10 (hard); 0 while New.
	Due           time.Time       `json:"due"`
	ElapsedDays   int             `json:"elapsed_days"`
	ScheduledDays int             `json:"scheduled_days"`
	Reps          int             `json:"reps"`
	Lapses        int             `json:"lapses"`
	LastReview    *time.Time      `json:"last_review,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewCardMemoryState creates the state of a card that has never been
// reviewed. New cards are due immediately.
func NewCardMemoryState(id, deckID, cardType string, now time.Time) (*CardMemoryState, error) {
	now = now.UTC()
	state := &CardMemoryState{
		ID:        id,
		DeckID:    deckID,
		CardType:  cardType,
		State:     StateNew,
		Due:       now,
		CreatedAt: now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks the memory-state invariants. Every violation wraps
// ErrInvalidCardState.
func (s *CardMemoryState) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCardState, ErrCardIDEmpty)
	}
	if !s.State.IsValid() {
		return fmt.Errorf("%w: unknown repetition state %d", ErrInvalidCardState, int(s.State))
	}
	if !isFinite(s.Stability) || !isFinite(s.Difficulty) {
		return fmt.Errorf("%w: stability %v and difficulty %v must be finite",
			ErrInvalidCardState, s.Stability, s.Difficulty)
	}
	if s.Stability < 0 {
		return fmt.Errorf("%w: negative stability %v", ErrInvalidCardState, s.Stability)
	}
	if s.Difficulty < 0 || s.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: difficulty %v out of range", ErrInvalidCardState, s.Difficulty)
	}
	if s.ElapsedDays < 0 || s.ScheduledDays < 0 {
		return fmt.Errorf("%w: negative day counters", ErrInvalidCardState)
	}
	if s.Reps < 0 || s.Lapses < 0 {
		return fmt.Errorf("%w: negative repetition counters", ErrInvalidCardState)
	}

	if s.State == StateNew {
		if s.LastReview != nil {
			return fmt.Errorf("%w: new card has a last review", ErrInvalidCardState)
		}
		return nil
	}

	if s.Difficulty < MinDifficulty {
		return fmt.Errorf("%w: difficulty %v out of range", ErrInvalidCardState, s.Difficulty)
	}
	if s.Stability == 0 {
		return fmt.Errorf("%w: reviewed card has zero stability", ErrInvalidCardState)
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsDue reports whether the card should be offered in a session at now.
// New cards are always due.
func (s *CardMemoryState) IsDue(now time.Time) bool {
	return s.State == StateNew || !s.Due.After(now)
}

// Clone returns a deep copy of the state.
func (s *CardMemoryState) Clone() *CardMemoryState {
	c := *s
	if s.LastReview != nil {
		lr := *s.LastReview
		c.LastReview = &lr
	}
	return &c
}

// Reset returns a copy of the state put back to New and due at now.
// Identity, metadata and the lifetime reps/lapses counters are kept.
func (s *CardMemoryState) Reset(now time.Time) *CardMemoryState {
	return &CardMemoryState{
		ID:        s.ID,
		DeckID:    s.DeckID,
		CardType:  s.CardType,
		State:     StateNew,
		Due:       now.UTC(),
		Reps:      s.Reps,
		Lapses:    s.Lapses,
		CreatedAt: s.CreatedAt,
	}
}

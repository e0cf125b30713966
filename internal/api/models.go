package api

import (
	"encoding/json"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/service"
	"github.com/phrazzld/deckstudy/internal/service/study_session"
)

// StartSessionRequest defines the payload for starting a study session.
// Both fields are optional: an empty card type studies every type, an empty
// order is chronological.
type StartSessionRequest struct {
	CardType string `json:"card_type" validate:"omitempty,max=64"`
	Order    string `json:"order"     validate:"omitempty,oneof=chronological randomized"`
}

// RateRequest defines the payload for rating the current card.
type RateRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=pass fail"`
}

// PostponeRequest defines the payload for delaying a card's next review.
type PostponeRequest struct {
	Days int `json:"days" validate:"required,min=1,max=36500"`
}

// ImportDeckRequest defines the payload for unlocking a deck.
type ImportDeckRequest struct {
	ID    string              `json:"id"    validate:"required,max=128"`
	Title string              `json:"title" validate:"required,max=256"`
	Cards []ImportCardRequest `json:"cards" validate:"required,min=1,dive"`
}

// ImportCardRequest is one card of an ImportDeckRequest.
type ImportCardRequest struct {
	ID      string          `json:"id"      validate:"required,max=128"`
	Type    string          `json:"type"    validate:"required,max=64"`
	Content json.RawMessage `json:"content" validate:"required"`
}

// ToDomain builds the deck and its cards, unlocked at now.
func (r *ImportDeckRequest) ToDomain(now time.Time) (*domain.Deck, []*domain.Card, error) {
	now = now.UTC()
	deck, err := domain.NewDeck(r.ID, r.Title, now)
	if err != nil {
		return nil, nil, err
	}

	cards := make([]*domain.Card, 0, len(r.Cards))
	for _, c := range r.Cards {
		card, err := domain.NewCard(c.ID, deck.ID, c.Type, c.Content, now)
		if err != nil {
			return nil, nil, err
		}
		cards = append(cards, card)
	}
	return deck, cards, nil
}

// SessionResponse describes a running study session.
type SessionResponse struct {
	ID        string    `json:"id"`
	DeckID    string    `json:"deck_id"`
	CardType  string    `json:"card_type,omitempty"`
	Order     string    `json:"order"`
	Size      int       `json:"size"`
	Remaining int       `json:"remaining"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// CardStateResponse is a card's memory state as returned to clients.
type CardStateResponse struct {
	CardID        string     `json:"card_id"`
	DeckID        string     `json:"deck_id"`
	CardType      string     `json:"card_type"`
	State         string     `json:"state"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	Due           time.Time  `json:"due"`
	ScheduledDays int        `json:"scheduled_days"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	LastReview    *time.Time `json:"last_review,omitempty"`
}

// RateResponse is returned after a card has been rated.
type RateResponse struct {
	Card      CardStateResponse `json:"card"`
	Requeued  bool              `json:"requeued"`
	Remaining int               `json:"remaining"`
	Complete  bool              `json:"complete"`
}

// DeckResponse is a deck with its due count.
type DeckResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UnlockedAt time.Time `json:"unlocked_at"`
	DueCount   int       `json:"due_count"`
}

// OutcomePreview is the state a card would reach under one rating.
type OutcomePreview struct {
	State         string    `json:"state"`
	Stability     float64   `json:"stability"`
	Difficulty    float64   `json:"difficulty"`
	Due           time.Time `json:"due"`
	ScheduledDays int       `json:"scheduled_days"`
}

// CardPreviewResponse shows a card and what each rating would do to it.
type CardPreviewResponse struct {
	ID             string                    `json:"id"`
	DeckID         string                    `json:"deck_id"`
	Type           string                    `json:"type"`
	Content        json.RawMessage           `json:"content"`
	Current        CardStateResponse         `json:"current"`
	Retrievability float64                   `json:"retrievability"`
	Outcomes       map[string]OutcomePreview `json:"outcomes"`
}

// ReviewLogResponse is one entry of a card's history.
type ReviewLogResponse struct {
	Outcome       string    `json:"outcome,omitempty"`
	Rating        string    `json:"rating"`
	State         string    `json:"state"`
	ElapsedDays   int       `json:"elapsed_days"`
	ScheduledDays int       `json:"scheduled_days"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

// ResetDeckResponse reports how many cards a reset touched.
type ResetDeckResponse struct {
	DeckID string `json:"deck_id"`
	Reset  int    `json:"reset"`
}

func sessionToResponse(handle study_session.SessionHandle, state study_session.State, remaining int) SessionResponse {
	return SessionResponse{
		ID:        handle.ID,
		DeckID:    handle.DeckID,
		CardType:  handle.Filters.CardType,
		Order:     string(handle.Filters.Order),
		Size:      handle.Size,
		Remaining: remaining,
		State:     state.String(),
		StartedAt: handle.StartedAt,
	}
}

func cardStateToResponse(s *domain.CardMemoryState) CardStateResponse {
	return CardStateResponse{
		CardID:        s.ID,
		DeckID:        s.DeckID,
		CardType:      s.CardType,
		State:         s.State.String(),
		Stability:     s.Stability,
		Difficulty:    s.Difficulty,
		Due:           s.Due,
		ScheduledDays: s.ScheduledDays,
		Reps:          s.Reps,
		Lapses:        s.Lapses,
		LastReview:    s.LastReview,
	}
}

func rateResultToResponse(r *study_session.RateResult) RateResponse {
	return RateResponse{
		Card:      cardStateToResponse(r.Card),
		Requeued:  r.Requeued,
		Remaining: r.Remaining,
		Complete:  r.Complete,
	}
}

func deckSummaryToResponse(s service.DeckSummary) DeckResponse {
	return DeckResponse{
		ID:         s.Deck.ID,
		Title:      s.Deck.Title,
		UnlockedAt: s.Deck.UnlockedAt,
		DueCount:   s.DueCount,
	}
}

func previewToResponse(p *service.CardPreview) CardPreviewResponse {
	outcomes := make(map[string]OutcomePreview, len(p.Outcomes))
	for rating, result := range p.Outcomes {
		outcomes[rating.String()] = OutcomePreview{
			State:         result.Card.State.String(),
			Stability:     result.Card.Stability,
			Difficulty:    result.Card.Difficulty,
			Due:           result.Card.Due,
			ScheduledDays: result.Card.ScheduledDays,
		}
	}

	return CardPreviewResponse{
		ID:             p.Card.ID,
		DeckID:         p.Card.DeckID,
		Type:           p.Card.Type,
		Content:        p.Card.Content,
		Current:        cardStateToResponse(p.State),
		Retrievability: p.Retrievability,
		Outcomes:       outcomes,
	}
}

func reviewLogToResponse(e *domain.ReviewLogEntry) ReviewLogResponse {
	return ReviewLogResponse{
		Outcome:       string(e.Outcome),
		Rating:        e.Rating.String(),
		State:         e.State.String(),
		ElapsedDays:   e.ElapsedDays,
		ScheduledDays: e.ScheduledDays,
		ReviewedAt:    e.ReviewedAt,
	}
}

package srs

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
)

// Common errors
var (
	ErrNilCard       = errors.New("card memory state cannot be nil")
	ErrInvalidDays   = errors.New("postpone days must be at least 1")
	ErrNotReviewed   = errors.New("only reviewed cards can be postponed")
	ErrInvalidParams = errors.New("invalid scheduler parameters")

	// ErrInvalidOutcome and ErrInvalidCardState are the domain sentinels,
	// re-exported so callers of this package can match on them directly.
	ErrInvalidOutcome   = domain.ErrInvalidOutcome
	ErrInvalidCardState = domain.ErrInvalidCardState
)

// SchedulingResult is the outcome of scheduling a card with one rating.
type SchedulingResult struct {
	Card *domain.CardMemoryState `json:"card"`
	Log  *domain.ReviewLogEntry  `json:"log"`
}

// Service defines the interface for SRS algorithm operations.
// Implementations are stateless and safe for concurrent use.
type Service interface {
	// ComputeNextState schedules a card after a pass/fail review.
	ComputeNextState(
		card *domain.CardMemoryState,
		outcome domain.Outcome,
		now time.Time,
	) (*domain.CardMemoryState, *domain.ReviewLogEntry, error)

	// ApplyRating schedules a card with a four-point rating.
	ApplyRating(
		card *domain.CardMemoryState,
		rating domain.Rating,
		now time.Time,
	) (*SchedulingResult, error)

	// PreviewAllOutcomes returns what each rating would produce, without
	// committing to any of them.
	PreviewAllOutcomes(
		card *domain.CardMemoryState,
		now time.Time,
	) (map[domain.Rating]*SchedulingResult, error)

	// Retrievability returns the probability that the card is recalled at now.
	// New cards report 0.
	Retrievability(card *domain.CardMemoryState, now time.Time) float64

	// PostponeReview delays a reviewed card's next review by days, counted
	// from its due date or from now if it is overdue. The delay is folded
	// into ScheduledDays so Due stays ScheduledDays after LastReview, and the
	// interval is capped at MaximumIntervalDays. New cards return
	// ErrNotReviewed.
	PostponeReview(
		card *domain.CardMemoryState,
		days int,
		now time.Time,
	) (*domain.CardMemoryState, error)

	// Params returns a copy of the parameters the service was built with.
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() (Service, error) {
	return NewServiceWithParams(NewDefaultParams())
}

// NewServiceWithParams creates a new SRS service with custom parameters.
// The parameters are copied, so later changes by the caller have no effect.
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := *params
	return &defaultService{params: &p}, nil
}

// ComputeNextState implements the Service interface for pass/fail reviews.
func (s *defaultService) ComputeNextState(
	card *domain.CardMemoryState,
	outcome domain.Outcome,
	now time.Time,
) (*domain.CardMemoryState, *domain.ReviewLogEntry, error) {
	rating, err := outcome.Rating()
	if err != nil {
		return nil, nil, err
	}

	result, err := s.ApplyRating(card, rating, now)
	if err != nil {
		return nil, nil, err
	}

	result.Log.Outcome = outcome
	return result.Card, result.Log, nil
}

// ApplyRating implements the Service interface for four-point ratings.
func (s *defaultService) ApplyRating(
	card *domain.CardMemoryState,
	rating domain.Rating,
	now time.Time,
) (*SchedulingResult, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if !rating.IsValid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutcome, domain.ErrInvalidRating)
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}

	next, log := calculateNextState(card, rating, now, s.params)
	return &SchedulingResult{Card: next, Log: log}, nil
}

// PreviewAllOutcomes implements the Service interface.
func (s *defaultService) PreviewAllOutcomes(
	card *domain.CardMemoryState,
	now time.Time,
) (map[domain.Rating]*SchedulingResult, error) {
	previews := make(map[domain.Rating]*SchedulingResult, len(domain.Ratings))
	for _, rating := range domain.Ratings {
		result, err := s.ApplyRating(card, rating, now)
		if err != nil {
			return nil, err
		}
		if outcome, ok := outcomeForRating(rating); ok {
			result.Log.Outcome = outcome
		}
		previews[rating] = result
	}
	return previews, nil
}

// Retrievability implements the Service interface.
func (s *defaultService) Retrievability(card *domain.CardMemoryState, now time.Time) float64 {
	if card == nil || card.State == domain.StateNew || card.LastReview == nil {
		return 0
	}
	elapsed := now.Sub(*card.LastReview).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return calculateRetrievability(elapsed, card.Stability, s.params)
}

// PostponeReview implements the Service interface.
func (s *defaultService) PostponeReview(
	card *domain.CardMemoryState,
	days int,
	now time.Time,
) (*domain.CardMemoryState, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if days < 1 {
		return nil, ErrInvalidDays
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if card.State == domain.StateNew || card.LastReview == nil {
		return nil, ErrNotReviewed
	}

	lastReview := card.LastReview.UTC()
	scheduled := card.ScheduledDays
	if card.Due.Before(now) {
		overdue := int(math.Ceil(now.Sub(lastReview).Hours() / 24))
		scheduled = max(scheduled, overdue)
	}
	scheduled = min(scheduled+days, s.params.MaximumIntervalDays)

	next := card.Clone()
	next.ScheduledDays = scheduled
	next.Due = lastReview.AddDate(0, 0, scheduled)
	return next, nil
}

// Params implements the Service interface.
func (s *defaultService) Params() Params {
	return *s.params
}

func outcomeForRating(r domain.Rating) (domain.Outcome, bool) {
	switch r {
	case domain.RatingGood:
		return domain.OutcomePass, true
	case domain.RatingAgain:
		return domain.OutcomeFail, true
	default:
		return "", false
	}
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/domain/srs"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/store"
)

// DeckSummary is a deck together with how many of its cards are due.
type DeckSummary struct {
	Deck     *domain.Deck `json:"deck"`
	DueCount int          `json:"due_count"`
}

// CardPreview shows a card, its memory state and what every rating would
// do to it right now.
type CardPreview struct {
	Card           *domain.Card                            `json:"card"`
	State          *domain.CardMemoryState                 `json:"state"`
	Retrievability float64                                 `json:"retrievability"`
	Outcomes       map[domain.Rating]*srs.SchedulingResult `json:"outcomes"`
}

// DeckService provides deck and card operations outside of study sessions.
type DeckService interface {
	// ImportDeck stores a newly unlocked deck and its cards. Every card
	// starts New and due at its creation time.
	ImportDeck(ctx context.Context, deck *domain.Deck, cards []*domain.Card) error

	// ListDecks returns every deck with its current due count.
	ListDecks(ctx context.Context) ([]DeckSummary, error)

	// PreviewCard returns the card and the result of each possible rating,
	// without changing anything.
	PreviewCard(ctx context.Context, cardID string) (*CardPreview, error)

	// CardHistory returns a card's review log, oldest first.
	CardHistory(ctx context.Context, cardID string) ([]*domain.ReviewLogEntry, error)

	// ResetDeck puts every card of a deck back to New.
	ResetDeck(ctx context.Context, deckID string) (int, error)

	// PostponeCard delays a reviewed card's next review by days and returns
	// its new memory state.
	PostponeCard(ctx context.Context, cardID string, days int) (*domain.CardMemoryState, error)
}

type deckServiceImpl struct {
	decks     store.DeckStore
	cards     store.CardStore
	scheduler srs.Service
	clock     func() time.Time
	logger    *slog.Logger
}

var _ DeckService = (*deckServiceImpl)(nil)

// NewDeckService creates a DeckService. It returns an error if a required
// dependency is nil.
func NewDeckService(
	decks store.DeckStore,
	cards store.CardStore,
	scheduler srs.Service,
	logger *slog.Logger,
) (DeckService, error) {
	if decks == nil {
		return nil, fmt.Errorf("%w: deck store cannot be nil", domain.ErrValidation)
	}
	if cards == nil {
		return nil, fmt.Errorf("%w: card store cannot be nil", domain.ErrValidation)
	}
	if scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &deckServiceImpl{
		decks:     decks,
		cards:     cards,
		scheduler: scheduler,
		clock:     time.Now,
		logger:    logger.With(slog.String("component", "deck_service")),
	}, nil
}

// ImportDeck implements DeckService.ImportDeck.
// The deck is created unless it is already unlocked; the cards are stored as
// one atomic batch.
func (s *deckServiceImpl) ImportDeck(ctx context.Context, deck *domain.Deck, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if deck == nil {
		return NewServiceError("deck", "import", domain.ErrValidation)
	}
	if len(cards) == 0 {
		return NewServiceError("deck", "import", ErrEmptyDeck)
	}
	for _, card := range cards {
		if card.DeckID != deck.ID {
			log.Warn("card deck mismatch",
				slog.String("deck_id", deck.ID),
				slog.String("card_id", card.ID),
				slog.String("card_deck_id", card.DeckID))
			return NewServiceError("deck", "import",
				fmt.Errorf("%w: card %s names deck %s", ErrCardDeckMismatch, card.ID, card.DeckID))
		}
	}

	if _, err := s.decks.GetByID(ctx, deck.ID); err == nil {
		log.Debug("deck already unlocked, adding cards", slog.String("deck_id", deck.ID))
	} else if store.IsNotFoundError(err) {
		if err := s.decks.Create(ctx, deck); err != nil {
			return NewServiceError("deck", "import", err)
		}
	} else {
		return NewServiceError("deck", "import", err)
	}

	if err := s.cards.CreateMultiple(ctx, cards); err != nil {
		log.Error("failed to import cards",
			slog.String("deck_id", deck.ID),
			slog.String("error", err.Error()))
		return NewServiceError("deck", "import", err)
	}

	log.Info("deck imported", slog.String("deck_id", deck.ID), slog.Int("cards", len(cards)))
	return nil
}

// ListDecks implements DeckService.ListDecks.
func (s *deckServiceImpl) ListDecks(ctx context.Context) ([]DeckSummary, error) {
	decks, err := s.decks.List(ctx)
	if err != nil {
		return nil, NewServiceError("deck", "list", err)
	}

	counts, err := s.cards.CountDueByDeck(ctx, s.clock().UTC())
	if err != nil {
		return nil, NewServiceError("deck", "list", err)
	}

	summaries := make([]DeckSummary, 0, len(decks))
	for _, deck := range decks {
		summaries = append(summaries, DeckSummary{Deck: deck, DueCount: counts[deck.ID]})
	}
	return summaries, nil
}

// PreviewCard implements DeckService.PreviewCard.
func (s *deckServiceImpl) PreviewCard(ctx context.Context, cardID string) (*CardPreview, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, NewServiceError("deck", "preview", err)
	}
	state, err := s.cards.GetMemoryState(ctx, cardID)
	if err != nil {
		return nil, NewServiceError("deck", "preview", err)
	}

	now := s.clock().UTC()
	outcomes, err := s.scheduler.PreviewAllOutcomes(state, now)
	if err != nil {
		log.Error("stored card state rejected by scheduler",
			slog.String("card_id", cardID),
			slog.String("error", err.Error()))
		return nil, NewServiceError("deck", "preview", err)
	}

	return &CardPreview{
		Card:           card,
		State:          state,
		Retrievability: s.scheduler.Retrievability(state, now),
		Outcomes:       outcomes,
	}, nil
}

// CardHistory implements DeckService.CardHistory.
func (s *deckServiceImpl) CardHistory(ctx context.Context, cardID string) ([]*domain.ReviewLogEntry, error) {
	if _, err := s.cards.GetMemoryState(ctx, cardID); err != nil {
		return nil, NewServiceError("deck", "history", err)
	}
	entries, err := s.cards.ListReviewLogs(ctx, cardID)
	if err != nil {
		return nil, NewServiceError("deck", "history", err)
	}
	return entries, nil
}

// ResetDeck implements DeckService.ResetDeck.
func (s *deckServiceImpl) ResetDeck(ctx context.Context, deckID string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.decks.GetByID(ctx, deckID); err != nil {
		return 0, NewServiceError("deck", "reset", err)
	}

	n, err := s.cards.ResetDeck(ctx, deckID, s.clock().UTC())
	if err != nil {
		return 0, NewServiceError("deck", "reset", err)
	}

	log.Info("deck reset", slog.String("deck_id", deckID), slog.Int("cards", n))
	return n, nil
}

// PostponeCard implements DeckService.PostponeCard.
func (s *deckServiceImpl) PostponeCard(
	ctx context.Context,
	cardID string,
	days int,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := s.cards.GetMemoryState(ctx, cardID)
	if err != nil {
		return nil, NewServiceError("deck", "postpone", err)
	}

	next, err := s.scheduler.PostponeReview(state, days, s.clock().UTC())
	if err != nil {
		return nil, NewServiceError("deck", "postpone", err)
	}
	if err := s.cards.SaveSchedule(ctx, next); err != nil {
		log.Error("failed to save postponed schedule",
			slog.String("card_id", cardID),
			slog.String("error", err.Error()))
		return nil, NewServiceError("deck", "postpone", err)
	}

	log.Info("card postponed",
		slog.String("card_id", cardID),
		slog.Int("days", days),
		slog.Time("due", next.Due))
	return next, nil
}

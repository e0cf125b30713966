// Package reminder tells the learner when decks have cards waiting.
//
// A Service counts due cards per deck and hands the non-empty counts to a
// Notifier. A Scheduler runs it, and any other housekeeping job, on a fixed
// interval.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
)

// DueCounter counts cards due at a given time, per deck.
type DueCounter interface {
	CountDueByDeck(ctx context.Context, now time.Time) (map[string]int, error)
}

// DeckLister lists unlocked decks.
type DeckLister interface {
	List(ctx context.Context) ([]*domain.Deck, error)
}

// Reminder says how many cards of one deck are due.
type Reminder struct {
	DeckID    string
	DeckTitle string
	DueCount  int
	At        time.Time
}

// Notifier delivers reminders. It is only called with at least one reminder.
type Notifier interface {
	Notify(ctx context.Context, reminders []Reminder) error
}

// LogNotifier writes each reminder as a structured log line.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "reminder"))}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, reminders []Reminder) error {
	for _, r := range reminders {
		n.logger.InfoContext(ctx, "cards due",
			slog.String("deck_id", r.DeckID),
			slog.String("deck_title", r.DeckTitle),
			slog.Int("due_count", r.DueCount))
	}
	return nil
}

// Service builds reminders from the card store.
type Service struct {
	counter  DueCounter
	decks    DeckLister
	notifier Notifier
	clock    func() time.Time
	logger   *slog.Logger
}

// NewService creates a Service. decks may be nil, in which case reminders
// carry no titles.
func NewService(counter DueCounter, decks DeckLister, notifier Notifier, logger *slog.Logger) (*Service, error) {
	if counter == nil {
		return nil, errors.New("due counter cannot be nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		counter:  counter,
		decks:    decks,
		notifier: notifier,
		clock:    time.Now,
		logger:   logger.With(slog.String("component", "reminder_service")),
	}, nil
}

// Check counts due cards and notifies about every deck that has some.
// Reminders are ordered by deck ID.
func (s *Service) Check(ctx context.Context) ([]Reminder, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock().UTC()

	counts, err := s.counter.CountDueByDeck(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count due cards: %w", err)
	}

	titles := make(map[string]string)
	if s.decks != nil {
		decks, err := s.decks.List(ctx)
		if err != nil {
			// Titles are cosmetic; the counts are still worth sending.
			log.Warn("failed to list decks for reminder titles", slog.String("error", err.Error()))
		}
		for _, d := range decks {
			titles[d.ID] = d.Title
		}
	}

	reminders := make([]Reminder, 0, len(counts))
	for deckID, n := range counts {
		if n <= 0 {
			continue
		}
		reminders = append(reminders, Reminder{
			DeckID:    deckID,
			DeckTitle: titles[deckID],
			DueCount:  n,
			At:        now,
		})
	}
	slices.SortFunc(reminders, func(a, b Reminder) int {
		return strings.Compare(a.DeckID, b.DeckID)
	})

	if len(reminders) == 0 {
		log.Debug("no cards due")
		return nil, nil
	}

	if err := s.notifier.Notify(ctx, reminders); err != nil {
		return reminders, fmt.Errorf("failed to send reminders: %w", err)
	}
	return reminders, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/store"
)

// PostgresDeckStore implements store.DeckStore on PostgreSQL.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeckStore creates a deck store over a connection or transaction
// owned by the caller. A nil logger falls back to slog.Default.
func NewPostgresDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

var _ store.DeckStore = (*PostgresDeckStore)(nil)

// Create implements store.DeckStore.Create.
func (s *PostgresDeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		log.Warn("invalid deck", slog.String("deck_id", deck.ID), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (id, title, unlocked_at)
		VALUES ($1, $2, $3)`,
		deck.ID, deck.Title, deck.UnlockedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to insert deck", slog.String("deck_id", deck.ID), slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("deck created", slog.String("deck_id", deck.ID))
	return nil
}

// GetByID implements store.DeckStore.GetByID.
func (s *PostgresDeckStore) GetByID(ctx context.Context, id string) (*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deck domain.Deck
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, unlocked_at
		FROM decks
		WHERE id = $1`, id,
	).Scan(&deck.ID, &deck.Title, &deck.UnlockedAt)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			log.Debug("deck not found", slog.String("deck_id", id))
			return nil, store.ErrDeckNotFound
		}
		log.Error("failed to get deck", slog.String("deck_id", id), slog.String("error", err.Error()))
		return nil, mapped
	}

	deck.UnlockedAt = deck.UnlockedAt.UTC()
	return &deck, nil
}

// List implements store.DeckStore.List.
func (s *PostgresDeckStore) List(ctx context.Context) ([]*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, unlocked_at
		FROM decks
		ORDER BY unlocked_at, id`)
	if err != nil {
		log.Error("failed to list decks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var decks []*domain.Deck
	for rows.Next() {
		var deck domain.Deck
		if err := rows.Scan(&deck.ID, &deck.Title, &deck.UnlockedAt); err != nil {
			return nil, MapError(err)
		}
		deck.UnlockedAt = deck.UnlockedAt.UTC()
		decks = append(decks, &deck)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return decks, nil
}

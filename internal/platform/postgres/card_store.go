package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/store"
)

// memoryStateColumns is the column list scanned by scanMemoryState.
const memoryStateColumns = `id, deck_id, type, state, stability, difficulty, due,
	elapsed_days, scheduled_days, reps, lapses, last_review, created_at`

// PostgresCardStore implements store.CardStore on PostgreSQL.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a card store over a connection or transaction
// owned by the caller. A nil logger falls back to slog.Default.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*PostgresCardStore)(nil)

// withTx runs fn inside a transaction. When the store already wraps a
// transaction, fn runs on it directly and the caller owns commit.
func (s *PostgresCardStore) withTx(ctx context.Context, fn func(db store.DBTX) error) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return fn(s.db)
	}
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(tx)
	})
}

// CreateMultiple implements store.CardStore.CreateMultiple.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		return nil
	}

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("invalid card in batch",
				slog.String("card_id", card.ID),
				slog.String("error", err.Error()))
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
	}

	err := s.withTx(ctx, func(db store.DBTX) error {
		for _, card := range cards {
			createdAt := card.CreatedAt.UTC()
			_, err := db.ExecContext(ctx, `
				INSERT INTO cards (id, deck_id, type, content, created_at, state, due)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				card.ID, card.DeckID, card.Type, []byte(card.Content), createdAt,
				domain.StateNew, createdAt,
			)
			if err != nil {
				log.Error("failed to insert card",
					slog.String("card_id", card.ID),
					slog.String("error", err.Error()))
				if IsForeignKeyViolation(err) {
					return fmt.Errorf("%w: %w", store.ErrDeckNotFound, err)
				}
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("cards created", slog.Int("count", len(cards)))
	return nil
}

// GetByID implements store.CardStore.GetByID.
func (s *PostgresCardStore) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		card    domain.Card
		content []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, deck_id, type, content, created_at
		FROM cards
		WHERE id = $1`, id,
	).Scan(&card.ID, &card.DeckID, &card.Type, &content, &card.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card", slog.String("card_id", id), slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	card.Content = content
	card.CreatedAt = card.CreatedAt.UTC()
	return &card, nil
}

// GetMemoryState implements store.CardStore.GetMemoryState.
func (s *PostgresCardStore) GetMemoryState(
	ctx context.Context,
	cardID string,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryStateColumns+` FROM cards WHERE id = $1`, cardID)
	state, err := scanMemoryState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", cardID))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get memory state",
			slog.String("card_id", cardID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return state, nil
}

// LoadCandidateCards implements store.CardStore.LoadCandidateCards.
func (s *PostgresCardStore) LoadCandidateCards(
	ctx context.Context,
	deckID string,
	cardType string,
	now time.Time,
) ([]*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryStateColumns+`
		FROM cards
		WHERE deck_id = $1
		  AND ($2::text = '' OR type = $2::text)
		  AND (state = $3 OR due <= $4)
		ORDER BY due, seq`,
		deckID, cardType, domain.StateNew, now.UTC(),
	)
	if err != nil {
		log.Error("failed to load candidate cards",
			slog.String("deck_id", deckID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var states []*domain.CardMemoryState
	for rows.Next() {
		state, err := scanMemoryState(rows)
		if err != nil {
			return nil, MapError(err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("loaded candidate cards",
		slog.String("deck_id", deckID),
		slog.String("card_type", cardType),
		slog.Int("count", len(states)))
	return states, nil
}

// SaveReview implements store.CardStore.SaveReview.
func (s *PostgresCardStore) SaveReview(
	ctx context.Context,
	state *domain.CardMemoryState,
	entry *domain.ReviewLogEntry,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if state == nil || entry == nil {
		return fmt.Errorf("%w: memory state and review log are required", store.ErrInvalidEntity)
	}
	if err := state.Validate(); err != nil {
		log.Warn("invalid memory state",
			slog.String("card_id", state.ID),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if !entry.Rating.IsValid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidRating)
	}

	err := s.withTx(ctx, func(db store.DBTX) error {
		result, err := db.ExecContext(ctx, `
			UPDATE cards
			SET state = $2, stability = $3, difficulty = $4, due = $5,
			    elapsed_days = $6, scheduled_days = $7, reps = $8, lapses = $9,
			    last_review = $10
			WHERE id = $1`,
			state.ID, state.State, state.Stability, state.Difficulty, state.Due.UTC(),
			state.ElapsedDays, state.ScheduledDays, state.Reps, state.Lapses,
			nullTime(state.LastReview),
		)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
			return err
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO review_logs (card_id, outcome, rating, state, elapsed_days, scheduled_days, reviewed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			state.ID, string(entry.Outcome), int(entry.Rating), entry.State,
			entry.ElapsedDays, entry.ScheduledDays, entry.ReviewedAt.UTC(),
		)
		return MapError(err)
	})
	if err != nil {
		log.Error("failed to save review",
			slog.String("card_id", state.ID),
			slog.String("error", err.Error()))
		if errors.Is(err, store.ErrCardNotFound) {
			return store.ErrCardNotFound
		}
		return store.NewStoreError("card", "save_review", "failed to persist review", err)
	}

	log.Debug("review saved",
		slog.String("card_id", state.ID),
		slog.String("state", state.State.String()),
		slog.Time("due", state.Due))
	return nil
}

// SaveSchedule implements store.CardStore.SaveSchedule.
func (s *PostgresCardStore) SaveSchedule(ctx context.Context, state *domain.CardMemoryState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if state == nil {
		return fmt.Errorf("%w: memory state is required", store.ErrInvalidEntity)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET due = $2, scheduled_days = $3
		WHERE id = $1`,
		state.ID, state.Due.UTC(), state.ScheduledDays,
	)
	if err != nil {
		log.Error("failed to save schedule",
			slog.String("card_id", state.ID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		return err
	}

	log.Debug("schedule saved",
		slog.String("card_id", state.ID),
		slog.Time("due", state.Due))
	return nil
}

// ListReviewLogs implements store.CardStore.ListReviewLogs.
func (s *PostgresCardStore) ListReviewLogs(
	ctx context.Context,
	cardID string,
) ([]*domain.ReviewLogEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, outcome, rating, state, elapsed_days, scheduled_days, reviewed_at
		FROM review_logs
		WHERE card_id = $1
		ORDER BY reviewed_at, id`, cardID)
	if err != nil {
		log.Error("failed to list review logs",
			slog.String("card_id", cardID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.ReviewLogEntry
	for rows.Next() {
		var (
			entry   domain.ReviewLogEntry
			outcome string
			rating  int
		)
		if err := rows.Scan(&entry.CardID, &outcome, &rating, &entry.State,
			&entry.ElapsedDays, &entry.ScheduledDays, &entry.ReviewedAt); err != nil {
			return nil, MapError(err)
		}
		entry.Outcome = domain.Outcome(outcome)
		entry.Rating = domain.Rating(rating)
		entry.ReviewedAt = entry.ReviewedAt.UTC()
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return entries, nil
}

// CountDueByDeck implements store.CardStore.CountDueByDeck.
func (s *PostgresCardStore) CountDueByDeck(ctx context.Context, now time.Time) (map[string]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT deck_id, COUNT(*)
		FROM cards
		WHERE state = $1 OR due <= $2
		GROUP BY deck_id`,
		domain.StateNew, now.UTC(),
	)
	if err != nil {
		log.Error("failed to count due cards", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			deckID string
			count  int
		)
		if err := rows.Scan(&deckID, &count); err != nil {
			return nil, MapError(err)
		}
		counts[deckID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return counts, nil
}

// ResetDeck implements store.CardStore.ResetDeck.
func (s *PostgresCardStore) ResetDeck(ctx context.Context, deckID string, now time.Time) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET state = $2, stability = 0, difficulty = 0, due = $3,
		    elapsed_days = 0, scheduled_days = 0, last_review = NULL
		WHERE deck_id = $1`,
		deckID, domain.StateNew, now.UTC(),
	)
	if err != nil {
		log.Error("failed to reset deck", slog.String("deck_id", deckID), slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("deck reset", slog.String("deck_id", deckID), slog.Int64("cards", n))
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemoryState(row rowScanner) (*domain.CardMemoryState, error) {
	var (
		state      domain.CardMemoryState
		lastReview sql.NullTime
	)
	err := row.Scan(
		&state.ID, &state.DeckID, &state.CardType, &state.State,
		&state.Stability, &state.Difficulty, &state.Due,
		&state.ElapsedDays, &state.ScheduledDays, &state.Reps, &state.Lapses,
		&lastReview, &state.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Due = state.Due.UTC()
	state.CreatedAt = state.CreatedAt.UTC()
	if lastReview.Valid {
		t := lastReview.Time.UTC()
		state.LastReview = &t
	}
	return &state, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

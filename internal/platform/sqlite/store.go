package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/store"
)

type deckRow struct {
	ID         string    `db:"id"`
	Title      string    `db:"title"`
	UnlockedAt time.Time `db:"unlocked_at"`
}

func (r deckRow) toDomain() *domain.Deck {
	return &domain.Deck{ID: r.ID, Title: r.Title, UnlockedAt: r.UnlockedAt.UTC()}
}

type memoryStateRow struct {
	ID            string                 `db:"id"`
	DeckID        string                 `db:"deck_id"`
	CardType      string                 `db:"type"`
	State         domain.RepetitionState `db:"state"`
	Stability     float64                `db:"stability"`
	Difficulty    float64                `db:"difficulty"`
	Due           time.Time              `db:"due"`
	ElapsedDays   int                    `db:"elapsed_days"`
	ScheduledDays int                    `db:"scheduled_days"`
	Reps          int                    `db:"reps"`
	Lapses        int                    `db:"lapses"`
	LastReview    sql.NullTime           `db:"last_review"`
	CreatedAt     time.Time              `db:"created_at"`
}

func (r memoryStateRow) toDomain() *domain.CardMemoryState {
	state := &domain.CardMemoryState{
		ID:            r.ID,
		DeckID:        r.DeckID,
		CardType:      r.CardType,
		State:         r.State,
		Stability:     r.Stability,
		Difficulty:    r.Difficulty,
		Due:           r.Due.UTC(),
		ElapsedDays:   r.ElapsedDays,
		ScheduledDays: r.ScheduledDays,
		Reps:          r.Reps,
		Lapses:        r.Lapses,
		CreatedAt:     r.CreatedAt.UTC(),
	}
	if r.LastReview.Valid {
		t := r.LastReview.Time.UTC()
		state.LastReview = &t
	}
	return state
}

type reviewLogRow struct {
	CardID        string                 `db:"card_id"`
	Outcome       string                 `db:"outcome"`
	Rating        int                    `db:"rating"`
	State         domain.RepetitionState `db:"state"`
	ElapsedDays   int                    `db:"elapsed_days"`
	ScheduledDays int                    `db:"scheduled_days"`
	ReviewedAt    time.Time              `db:"reviewed_at"`
}

const selectMemoryState = `
	SELECT id, deck_id, type, state, stability, difficulty, due,
	       elapsed_days, scheduled_days, reps, lapses, last_review, created_at
	FROM cards`

// DeckStore implements store.DeckStore on SQLite.
type DeckStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewDeckStore creates a deck store. A nil logger falls back to slog.Default.
func NewDeckStore(db *sqlx.DB, logger *slog.Logger) *DeckStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckStore{db: db, logger: logger.With(slog.String("component", "deck_store"))}
}

var _ store.DeckStore = (*DeckStore)(nil)

// Create implements store.DeckStore.Create.
func (s *DeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decks (id, title, unlocked_at) VALUES (?, ?, ?)`,
		deck.ID, deck.Title, deck.UnlockedAt.UTC())
	if err != nil {
		log.Error("failed to insert deck", slog.String("deck_id", deck.ID), slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("deck created", slog.String("deck_id", deck.ID))
	return nil
}

// GetByID implements store.DeckStore.GetByID.
func (s *DeckStore) GetByID(ctx context.Context, id string) (*domain.Deck, error) {
	var row deckRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, title, unlocked_at FROM decks WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDeckNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get deck",
			slog.String("deck_id", id), slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return row.toDomain(), nil
}

// List implements store.DeckStore.List.
func (s *DeckStore) List(ctx context.Context) ([]*domain.Deck, error) {
	var rows []deckRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, title, unlocked_at FROM decks ORDER BY unlocked_at, id`); err != nil {
		return nil, MapError(err)
	}

	decks := make([]*domain.Deck, 0, len(rows))
	for _, r := range rows {
		decks = append(decks, r.toDomain())
	}
	return decks, nil
}

// CardStore implements store.CardStore on SQLite.
type CardStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewCardStore creates a card store. A nil logger falls back to slog.Default.
func NewCardStore(db *sqlx.DB, logger *slog.Logger) *CardStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{db: db, logger: logger.With(slog.String("component", "card_store"))}
}

var _ store.CardStore = (*CardStore)(nil)

// CreateMultiple implements store.CardStore.CreateMultiple.
func (s *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		return nil
	}
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("invalid card in batch", slog.String("card_id", card.ID), slog.String("error", err.Error()))
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
	}

	err := store.RunInTransaction(ctx, s.db.DB, func(ctx context.Context, tx *sql.Tx) error {
		for _, card := range cards {
			createdAt := card.CreatedAt.UTC()
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cards (id, deck_id, type, content, created_at, state, due)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				card.ID, card.DeckID, card.Type, string(card.Content), createdAt,
				domain.StateNew, createdAt)
			if err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("%w: %w", store.ErrDeckNotFound, err)
				}
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create cards", slog.Int("count", len(cards)), slog.String("error", err.Error()))
		return err
	}

	log.Info("cards created", slog.Int("count", len(cards)))
	return nil
}

// GetByID implements store.CardStore.GetByID.
func (s *CardStore) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	var row struct {
		ID        string    `db:"id"`
		DeckID    string    `db:"deck_id"`
		Type      string    `db:"type"`
		Content   string    `db:"content"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT id, deck_id, type, content, created_at FROM cards WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		return nil, MapError(err)
	}

	return &domain.Card{
		ID:        row.ID,
		DeckID:    row.DeckID,
		Type:      row.Type,
		Content:   []byte(row.Content),
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

// GetMemoryState implements store.CardStore.GetMemoryState.
func (s *CardStore) GetMemoryState(ctx context.Context, cardID string) (*domain.CardMemoryState, error) {
	var row memoryStateRow
	if err := s.db.GetContext(ctx, &row, selectMemoryState+` WHERE id = ?`, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		return nil, MapError(err)
	}
	return row.toDomain(), nil
}

// LoadCandidateCards implements store.CardStore.LoadCandidateCards.
// Ties on due time fall back to rowid, which follows import order.
func (s *CardStore) LoadCandidateCards(
	ctx context.Context,
	deckID string,
	cardType string,
	now time.Time,
) ([]*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var rows []memoryStateRow
	err := s.db.SelectContext(ctx, &rows, selectMemoryState+`
		WHERE deck_id = ?
		  AND (? = '' OR type = ?)
		  AND (state = ? OR due <= ?)
		ORDER BY due, rowid`,
		deckID, cardType, cardType, domain.StateNew, now.UTC())
	if err != nil {
		log.Error("failed to load candidate cards", slog.String("deck_id", deckID), slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	states := make([]*domain.CardMemoryState, 0, len(rows))
	for _, r := range rows {
		states = append(states, r.toDomain())
	}
	return states, nil
}

// SaveReview implements store.CardStore.SaveReview.
func (s *CardStore) SaveReview(
	ctx context.Context,
	state *domain.CardMemoryState,
	entry *domain.ReviewLogEntry,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if state == nil || entry == nil {
		return fmt.Errorf("%w: memory state and review log are required", store.ErrInvalidEntity)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if !entry.Rating.IsValid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidRating)
	}

	var lastReview sql.NullTime
	if state.LastReview != nil {
		lastReview = sql.NullTime{Time: state.LastReview.UTC(), Valid: true}
	}

	err := store.RunInTransaction(ctx, s.db.DB, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE cards
			SET state = ?, stability = ?, difficulty = ?, due = ?,
			    elapsed_days = ?, scheduled_days = ?, reps = ?, lapses = ?, last_review = ?
			WHERE id = ?`,
			state.State, state.Stability, state.Difficulty, state.Due.UTC(),
			state.ElapsedDays, state.ScheduledDays, state.Reps, state.Lapses, lastReview,
			state.ID)
		if err != nil {
			return MapError(err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return store.ErrCardNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO review_logs (card_id, outcome, rating, state, elapsed_days, scheduled_days, reviewed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			state.ID, string(entry.Outcome), int(entry.Rating), entry.State,
			entry.ElapsedDays, entry.ScheduledDays, entry.ReviewedAt.UTC())
		return MapError(err)
	})
	if err != nil {
		log.Error("failed to save review", slog.String("card_id", state.ID), slog.String("error", err.Error()))
		if errors.Is(err, store.ErrCardNotFound) {
			return store.ErrCardNotFound
		}
		return store.NewStoreError("card", "save_review", "failed to persist review", err)
	}

	log.Debug("review saved", slog.String("card_id", state.ID), slog.String("state", state.State.String()))
	return nil
}

// SaveSchedule implements store.CardStore.SaveSchedule.
func (s *CardStore) SaveSchedule(ctx context.Context, state *domain.CardMemoryState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if state == nil {
		return fmt.Errorf("%w: memory state is required", store.ErrInvalidEntity)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE cards SET due = ?, scheduled_days = ? WHERE id = ?`,
		state.Due.UTC(), state.ScheduledDays, state.ID)
	if err != nil {
		log.Error("failed to save schedule", slog.String("card_id", state.ID), slog.String("error", err.Error()))
		return MapError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return store.ErrCardNotFound
	}

	log.Debug("schedule saved", slog.String("card_id", state.ID), slog.Time("due", state.Due))
	return nil
}

// ListReviewLogs implements store.CardStore.ListReviewLogs.
func (s *CardStore) ListReviewLogs(ctx context.Context, cardID string) ([]*domain.ReviewLogEntry, error) {
	var rows []reviewLogRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT card_id, outcome, rating, state, elapsed_days, scheduled_days, reviewed_at
		FROM review_logs
		WHERE card_id = ?
		ORDER BY reviewed_at, id`, cardID)
	if err != nil {
		return nil, MapError(err)
	}

	entries := make([]*domain.ReviewLogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, &domain.ReviewLogEntry{
			CardID:        r.CardID,
			Outcome:       domain.Outcome(r.Outcome),
			Rating:        domain.Rating(r.Rating),
			State:         r.State,
			ElapsedDays:   r.ElapsedDays,
			ScheduledDays: r.ScheduledDays,
			ReviewedAt:    r.ReviewedAt.UTC(),
		})
	}
	return entries, nil
}

// CountDueByDeck implements store.CardStore.CountDueByDeck.
func (s *CardStore) CountDueByDeck(ctx context.Context, now time.Time) (map[string]int, error) {
	var rows []struct {
		DeckID string `db:"deck_id"`
		Count  int    `db:"due_count"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT deck_id, COUNT(*) AS due_count
		FROM cards
		WHERE state = ? OR due <= ?
		GROUP BY deck_id`,
		domain.StateNew, now.UTC())
	if err != nil {
		return nil, MapError(err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.DeckID] = r.Count
	}
	return counts, nil
}

// ResetDeck implements store.CardStore.ResetDeck.
func (s *CardStore) ResetDeck(ctx context.Context, deckID string, now time.Time) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET state = ?, stability = 0, difficulty = 0, due = ?,
		    elapsed_days = 0, scheduled_days = 0, last_review = NULL
		WHERE deck_id = ?`,
		domain.StateNew, now.UTC(), deckID)
	if err != nil {
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("deck reset", slog.String("deck_id", deckID), slog.Int64("cards", n))
	return int(n), nil
}

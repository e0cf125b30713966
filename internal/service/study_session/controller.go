package study_session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/domain/srs"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source. Defaults to time.Now.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRandSource sets the source used to shuffle randomized sessions.
func WithRandSource(src rand.Source) Option {
	return func(c *Controller) {
		if src != nil {
			c.rng = rand.New(src)
		}
	}
}

// Controller owns one study session at a time. It is safe for concurrent use,
// but concurrent Rate calls are rejected rather than serialized.
type Controller struct {
	repo      CardRepository
	scheduler srs.Service
	clock     Clock
	rng       *rand.Rand
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	handle     *SessionHandle
	queue      deque.Deque[*domain.CardMemoryState]
	inFlight   bool
	generation uint64
}

// NewController creates a Controller in the Setup state.
func NewController(
	repo CardRepository,
	scheduler srs.Service,
	logger *slog.Logger,
	opts ...Option,
) *Controller {
	if repo == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("repo cannot be nil")
	}
	if scheduler == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("scheduler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		repo:      repo,
		scheduler: scheduler,
		clock:     time.Now,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:    logger.With(slog.String("component", "study_session")),
		state:     StateSetup,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSession snapshots the due and new cards of a deck into the session
// queue and moves the controller to Active. When nothing matches the filters
// it returns ErrNoCardsDue and stays in Setup.
func (c *Controller) StartSession(ctx context.Context, deckID string, filters Filters) (*SessionHandle, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if strings.TrimSpace(deckID) == "" {
		return nil, NewStartSessionError("deck ID is required", domain.ErrInvalidID)
	}
	if !filters.Order.IsValid() {
		return nil, NewStartSessionError(fmt.Sprintf("unknown order %q", filters.Order), ErrInvalidFilters)
	}
	if filters.Order == "" {
		filters.Order = OrderChronological
	}

	c.mu.Lock()
	if c.state != StateSetup {
		state := c.state
		c.mu.Unlock()
		return nil, NewStartSessionError("current state is "+state.String(), ErrSessionNotInSetup)
	}
	c.mu.Unlock()

	now := c.clock().UTC()
	candidates, err := c.repo.LoadCandidateCards(ctx, deckID, filters.CardType, now)
	if err != nil {
		log.Error("failed to load candidate cards",
			slog.String("deck_id", deckID),
			slog.String("error", err.Error()))
		return nil, NewStartSessionError("failed to load candidate cards", err)
	}

	queue := selectCandidates(candidates, deckID, filters.CardType, now)
	if len(queue) == 0 {
		log.Info("no cards due", slog.String("deck_id", deckID), slog.String("card_type", filters.CardType))
		return nil, ErrNoCardsDue
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another StartSession may have won while candidates were loading.
	if c.state != StateSetup {
		return nil, NewStartSessionError("current state is "+c.state.String(), ErrSessionNotInSetup)
	}

	switch filters.Order {
	case OrderRandomized:
		c.rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	default:
		slices.SortStableFunc(queue, func(a, b *domain.CardMemoryState) int {
			return a.Due.Compare(b.Due)
		})
	}

	c.queue.Clear()
	for _, card := range queue {
		c.queue.PushBack(card)
	}

	c.handle = &SessionHandle{
		ID:        uuid.NewString(),
		DeckID:    deckID,
		Filters:   filters,
		Size:      len(queue),
		StartedAt: now,
	}
	c.state = StateActive
	c.generation++

	log.Info("study session started",
		slog.String("session_id", c.handle.ID),
		slog.String("deck_id", deckID),
		slog.String("card_type", filters.CardType),
		slog.String("order", string(filters.Order)),
		slog.Int("cards", len(queue)))

	handle := *c.handle
	return &handle, nil
}

// selectCandidates copies the candidates that satisfy the session filter.
// The store already filters; this keeps the snapshot honest if it did not.
func selectCandidates(
	candidates []*domain.CardMemoryState,
	deckID, cardType string,
	now time.Time,
) []*domain.CardMemoryState {
	out := make([]*domain.CardMemoryState, 0, len(candidates))
	for _, card := range candidates {
		if card == nil || card.DeckID != deckID {
			continue
		}
		if cardType != "" && card.CardType != cardType {
			continue
		}
		if !card.IsDue(now) {
			continue
		}
		out = append(out, card.Clone())
	}
	return out
}

// Rate applies outcome to the current card. The new state is persisted before
// the queue advances: on a persistence error the queue is left as it was and
// the same card stays current. A failed card is re-queued at the tail; a
// passed card leaves the session.
func (c *Controller) Rate(ctx context.Context, outcome domain.Outcome) (*RateResult, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if !outcome.IsValid() {
		return nil, NewRateError(fmt.Sprintf("outcome %q", outcome), srs.ErrInvalidOutcome)
	}

	c.mu.Lock()
	if c.state != StateActive || c.queue.Len() == 0 {
		c.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrRateInProgress
	}
	c.inFlight = true
	current := c.queue.Front()
	generation := c.generation
	sessionID := c.handle.ID
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}

	now := c.clock().UTC()
	next, entry, err := c.scheduler.ComputeNextState(current, outcome, now)
	if err != nil {
		release()
		log.Error("scheduler rejected card",
			slog.String("session_id", sessionID),
			slog.String("card_id", current.ID),
			slog.String("error", err.Error()))
		return nil, NewRateError("failed to schedule card", err)
	}

	if err := c.repo.SaveReview(ctx, next, entry); err != nil {
		release()
		log.Error("failed to persist review",
			slog.String("session_id", sessionID),
			slog.String("card_id", current.ID),
			slog.String("error", err.Error()))
		return nil, NewRateError("failed to persist review", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	result := &RateResult{Card: next.Clone(), Log: entry}

	// The session was abandoned while the review was being saved. The review
	// is durable; there is no queue left to advance.
	if c.generation != generation || c.state != StateActive {
		result.Complete = true
		return result, nil
	}

	c.queue.PopFront()
	if outcome == domain.OutcomeFail {
		c.queue.PushBack(next)
		result.Requeued = true
	}

	result.Remaining = c.queue.Len()
	if result.Remaining == 0 {
		c.state = StateComplete
		result.Complete = true
		log.Info("study session complete", slog.String("session_id", sessionID))
	}

	log.Debug("card rated",
		slog.String("session_id", sessionID),
		slog.String("card_id", next.ID),
		slog.String("outcome", string(outcome)),
		slog.String("state", next.State.String()),
		slog.Time("due", next.Due),
		slog.Int("remaining", result.Remaining))

	return result, nil
}

// CurrentCard returns a copy of the queue head. It reports false outside the
// Active state.
func (c *Controller) CurrentCard() (*domain.CardMemoryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive || c.queue.Len() == 0 {
		return nil, false
	}
	return c.queue.Front().Clone(), true
}

// ReturnToSetup discards the current session, whatever its state. Reviews
// already persisted are kept.
func (c *Controller) ReturnToSetup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		c.logger.Debug("returning to setup",
			slog.String("session_id", c.handle.ID),
			slog.String("from", c.state.String()),
			slog.Int("abandoned", c.queue.Len()))
	}

	c.queue.Clear()
	c.handle = nil
	c.state = StateSetup
	c.generation++
}

// State returns the controller's lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns how many cards are left in the queue, including re-queued failures.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Handle returns the current session handle, if a session has been started
// and not abandoned.
func (c *Controller) Handle() (SessionHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return SessionHandle{}, false
	}
	return *c.handle, true
}

// Queue returns copies of the queued cards from head to tail.
func (c *Controller) Queue() []*domain.CardMemoryState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*domain.CardMemoryState, 0, c.queue.Len())
	for i := range c.queue.Len() {
		out = append(out, c.queue.At(i).Clone())
	}
	return out
}

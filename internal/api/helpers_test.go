package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/domain/srs"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/service"
	"github.com/phrazzld/deckstudy/internal/service/study_session"
	"github.com/phrazzld/deckstudy/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// memCards is an in-memory card repository for handler tests.
type memCards struct {
	mu      sync.Mutex
	order   []string
	cards   map[string]*domain.Card
	states  map[string]*domain.CardMemoryState
	saveErr error
	saved   int
}

func newMemCards() *memCards {
	return &memCards{
		cards:  make(map[string]*domain.Card),
		states: make(map[string]*domain.CardMemoryState),
	}
}

func (m *memCards) add(t *testing.T, id, deckID, cardType string) {
	t.Helper()
	card, err := domain.NewCard(id, deckID, cardType, json.RawMessage(`{"front":"`+id+`","back":"b"}`), testNow)
	require.NoError(t, err)
	state, err := domain.NewCardMemoryState(id, deckID, cardType, testNow)
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, id)
	m.cards[id] = card
	m.states[id] = state
}

func (m *memCards) LoadCandidateCards(
	_ context.Context,
	deckID, cardType string,
	now time.Time,
) ([]*domain.CardMemoryState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.CardMemoryState
	for _, id := range m.order {
		s := m.states[id]
		if s.DeckID != deckID || (cardType != "" && s.CardType != cardType) || !s.IsDue(now) {
			continue
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *memCards) SaveReview(_ context.Context, state *domain.CardMemoryState, _ *domain.ReviewLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.states[state.ID]; !ok {
		return store.ErrCardNotFound
	}
	m.states[state.ID] = state.Clone()
	m.saved++
	return nil
}

func (m *memCards) GetByID(_ context.Context, id string) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return card, nil
}

// MockDeckService is a testify mock of service.DeckService.
type MockDeckService struct {
	mock.Mock
}

var _ service.DeckService = (*MockDeckService)(nil)

func (m *MockDeckService) ImportDeck(ctx context.Context, deck *domain.Deck, cards []*domain.Card) error {
	return m.Called(ctx, deck, cards).Error(0)
}

func (m *MockDeckService) ListDecks(ctx context.Context) ([]service.DeckSummary, error) {
	args := m.Called(ctx)
	summaries, _ := args.Get(0).([]service.DeckSummary)
	return summaries, args.Error(1)
}

func (m *MockDeckService) PreviewCard(ctx context.Context, cardID string) (*service.CardPreview, error) {
	args := m.Called(ctx, cardID)
	preview, _ := args.Get(0).(*service.CardPreview)
	return preview, args.Error(1)
}

func (m *MockDeckService) CardHistory(ctx context.Context, cardID string) ([]*domain.ReviewLogEntry, error) {
	args := m.Called(ctx, cardID)
	entries, _ := args.Get(0).([]*domain.ReviewLogEntry)
	return entries, args.Error(1)
}

func (m *MockDeckService) ResetDeck(ctx context.Context, deckID string) (int, error) {
	args := m.Called(ctx, deckID)
	return args.Int(0), args.Error(1)
}

func (m *MockDeckService) PostponeCard(ctx context.Context, cardID string, days int) (*domain.CardMemoryState, error) {
	args := m.Called(ctx, cardID, days)
	state, _ := args.Get(0).(*domain.CardMemoryState)
	return state, args.Error(1)
}

type testServer struct {
	handler  http.Handler
	cards    *memCards
	decks    *MockDeckService
	registry *SessionRegistry
	logs     *logger.TestLogBuffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	buf, log := logger.NewTestLogger(t)
	scheduler, err := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{DisableFuzz: true}))
	require.NoError(t, err)

	cards := newMemCards()
	decks := &MockDeckService{}
	registry := NewSessionRegistry(func() *study_session.Controller {
		return study_session.NewController(cards, scheduler, log,
			study_session.WithClock(func() time.Time { return testNow }))
	}, log)

	handler := NewRouter(RouterConfig{
		Sessions: NewSessionHandler(registry, cards, log),
		Decks:    NewDeckHandler(decks, log),
		Logger:   log,
	})

	t.Cleanup(func() { decks.AssertExpectations(t) })
	return &testServer{handler: handler, cards: cards, decks: decks, registry: registry, logs: buf}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

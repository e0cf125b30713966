package service

import (
	"context"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockDeckStore mocks store.DeckStore.
type MockDeckStore struct {
	mock.Mock
}

func (m *MockDeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	return m.Called(ctx, deck).Error(0)
}

func (m *MockDeckStore) GetByID(ctx context.Context, id string) (*domain.Deck, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deck), args.Error(1)
}

func (m *MockDeckStore) List(ctx context.Context) ([]*domain.Deck, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Deck), args.Error(1)
}

// MockCardStore mocks store.CardStore.
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	return m.Called(ctx, cards).Error(0)
}

func (m *MockCardStore) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardStore) GetMemoryState(ctx context.Context, cardID string) (*domain.CardMemoryState, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardMemoryState), args.Error(1)
}

func (m *MockCardStore) LoadCandidateCards(
	ctx context.Context,
	deckID string,
	cardType string,
	now time.Time,
) ([]*domain.CardMemoryState, error) {
	args := m.Called(ctx, deckID, cardType, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CardMemoryState), args.Error(1)
}

func (m *MockCardStore) SaveReview(
	ctx context.Context,
	state *domain.CardMemoryState,
	entry *domain.ReviewLogEntry,
) error {
	return m.Called(ctx, state, entry).Error(0)
}

func (m *MockCardStore) SaveSchedule(ctx context.Context, state *domain.CardMemoryState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *MockCardStore) ListReviewLogs(ctx context.Context, cardID string) ([]*domain.ReviewLogEntry, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReviewLogEntry), args.Error(1)
}

func (m *MockCardStore) CountDueByDeck(ctx context.Context, now time.Time) (map[string]int, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockCardStore) ResetDeck(ctx context.Context, deckID string, now time.Time) (int, error) {
	args := m.Called(ctx, deckID, now)
	return args.Int(0), args.Error(1)
}

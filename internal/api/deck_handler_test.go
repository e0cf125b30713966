package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/deckstudy/internal/api/shared"
	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/domain/srs"
	"github.com/phrazzld/deckstudy/internal/service"
	"github.com/phrazzld/deckstudy/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListDecks(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	deck, err := domain.NewDeck("deck-1", "Basics", testNow)
	require.NoError(t, err)
	s.decks.On("ListDecks", mock.Anything).
		Return([]service.DeckSummary{{Deck: deck, DueCount: 7}}, nil).Once()

	w := s.do(t, http.MethodGet, "/api/decks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[[]DeckResponse](t, w)
	require.Len(t, resp, 1)
	assert.Equal(t, "deck-1", resp[0].ID)
	assert.Equal(t, "Basics", resp[0].Title)
	assert.Equal(t, 7, resp[0].DueCount)
}

func TestListDecks_Error(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	s.decks.On("ListDecks", mock.Anything).Return(nil, errors.New("pool exhausted")).Once()

	w := s.do(t, http.MethodGet, "/api/decks", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to list decks", decode[shared.ErrorResponse](t, w).Error)
}

func TestImportDeck(t *testing.T) {
	t.Parallel()

	valid := ImportDeckRequest{
		ID:    "deck-1",
		Title: "Basics",
		Cards: []ImportCardRequest{
			{ID: "c1", Type: domain.CardTypeWord, Content: json.RawMessage(`{"front":"hola","back":"hello"}`)},
			{ID: "c2", Type: domain.CardTypePhrase, Content: json.RawMessage(`{"front":"buenos dias","back":"good morning"}`)},
		},
	}

	tests := []struct {
		name       string
		body       any
		serviceErr error
		callsSvc   bool
		wantStatus int
		wantMsg    string
	}{
		{name: "imported", body: valid, callsSvc: true, wantStatus: http.StatusCreated},
		{name: "duplicate card", body: valid, callsSvc: true, serviceErr: fmt.Errorf("wrapped: %w", store.ErrDuplicate), wantStatus: http.StatusConflict, wantMsg: "Already exists"},
		{name: "no cards", body: `{"id":"deck-1","title":"Basics","cards":[]}`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid cards: too short"},
		{name: "missing title", body: `{"id":"deck-1","cards":[{"id":"c1","type":"word","content":{}}]}`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid title: required field"},
		{
			name:       "blank card id",
			body:       `{"id":"deck-1","title":"Basics","cards":[{"id":"  ","type":"word","content":{}}]}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid entity data",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)

			if tc.callsSvc {
				s.decks.On("ImportDeck", mock.Anything,
					mock.MatchedBy(func(d *domain.Deck) bool { return d.ID == "deck-1" && d.Title == "Basics" }),
					mock.MatchedBy(func(cards []*domain.Card) bool {
						return len(cards) == 2 && cards[0].DeckID == "deck-1" && cards[1].Type == domain.CardTypePhrase
					})).
					Return(tc.serviceErr).Once()
			}

			w := s.do(t, http.MethodPost, "/api/decks", tc.body)
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())

			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, decode[shared.ErrorResponse](t, w).Error)
				return
			}
			resp := decode[DeckResponse](t, w)
			assert.Equal(t, "deck-1", resp.ID)
			assert.Equal(t, 2, resp.DueCount)
		})
	}
}

func TestPreviewCard(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	scheduler, err := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{DisableFuzz: true}))
	require.NoError(t, err)
	card, err := domain.NewCard("c1", "deck-1", domain.CardTypeWord, json.RawMessage(`{"front":"a"}`), testNow)
	require.NoError(t, err)
	state, err := domain.NewCardMemoryState("c1", "deck-1", domain.CardTypeWord, testNow)
	require.NoError(t, err)
	outcomes, err := scheduler.PreviewAllOutcomes(state, testNow)
	require.NoError(t, err)

	s.decks.On("PreviewCard", mock.Anything, "c1").Return(&service.CardPreview{
		Card:     card,
		State:    state,
		Outcomes: outcomes,
	}, nil).Once()
	s.decks.On("PreviewCard", mock.Anything, "missing").Return(nil, store.ErrCardNotFound).Once()

	w := s.do(t, http.MethodGet, "/api/cards/c1/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[CardPreviewResponse](t, w)
	assert.Equal(t, "c1", resp.ID)
	assert.Equal(t, "new", resp.Current.State)
	require.Len(t, resp.Outcomes, 4)
	for _, name := range []string{"again", "hard", "good", "easy"} {
		assert.Contains(t, resp.Outcomes, name)
	}
	assert.True(t, resp.Outcomes["easy"].Due.After(resp.Outcomes["again"].Due))

	w = s.do(t, http.MethodGet, "/api/cards/missing/preview", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Card not found", decode[shared.ErrorResponse](t, w).Error)
}

func TestCardHistory(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	entries := []*domain.ReviewLogEntry{
		{CardID: "c1", Outcome: domain.OutcomeFail, Rating: domain.RatingAgain, State: domain.StateNew, ReviewedAt: testNow},
		{CardID: "c1", Outcome: domain.OutcomePass, Rating: domain.RatingGood, State: domain.StateLearning, ReviewedAt: testNow.Add(time.Hour)},
	}
	s.decks.On("CardHistory", mock.Anything, "c1").Return(entries, nil).Once()

	w := s.do(t, http.MethodGet, "/api/cards/c1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[[]ReviewLogResponse](t, w)
	require.Len(t, resp, 2)
	assert.Equal(t, "fail", resp[0].Outcome)
	assert.Equal(t, "again", resp[0].Rating)
	assert.Equal(t, "learning", resp[1].State)
}

func TestResetDeck(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	s.decks.On("ResetDeck", mock.Anything, "deck-1").Return(3, nil).Once()
	s.decks.On("ResetDeck", mock.Anything, "deck-9").Return(0, fmt.Errorf("reset: %w", store.ErrDeckNotFound)).Once()

	w := s.do(t, http.MethodPost, "/api/decks/deck-1/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResetDeckResponse{DeckID: "deck-1", Reset: 3}, decode[ResetDeckResponse](t, w))

	w = s.do(t, http.MethodPost, "/api/decks/deck-9/reset", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Deck not found", decode[shared.ErrorResponse](t, w).Error)
}

func TestPostponeCard(t *testing.T) {
	t.Parallel()

	lastReview := testNow.AddDate(0, 0, -4)
	postponed := &domain.CardMemoryState{
		ID:            "c1",
		DeckID:        "deck-1",
		CardType:      domain.CardTypeWord,
		State:         domain.StateReview,
		Stability:     6,
		Difficulty:    5,
		Due:           lastReview.AddDate(0, 0, 9),
		ScheduledDays: 9,
		Reps:          2,
		LastReview:    &lastReview,
	}

	tests := []struct {
		name       string
		cardID     string
		body       any
		serviceErr error
		callsSvc   bool
		wantStatus int
		wantMsg    string
	}{
		{name: "postponed", cardID: "c1", body: PostponeRequest{Days: 3}, callsSvc: true, wantStatus: http.StatusOK},
		{name: "unknown card", cardID: "c1", body: PostponeRequest{Days: 3}, callsSvc: true, serviceErr: service.NewServiceError("deck", "postpone", store.ErrCardNotFound), wantStatus: http.StatusNotFound, wantMsg: "Card not found"},
		{name: "new card", cardID: "c1", body: PostponeRequest{Days: 3}, callsSvc: true, serviceErr: service.NewServiceError("deck", "postpone", srs.ErrNotReviewed), wantStatus: http.StatusConflict, wantMsg: "Only reviewed cards can be postponed"},
		{name: "missing days", cardID: "c1", body: `{}`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid days: required field"},
		{name: "negative days", cardID: "c1", body: `{"days":-2}`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid days: too short"},
		{name: "malformed body", cardID: "c1", body: `{"days":`, wantStatus: http.StatusBadRequest, wantMsg: "Invalid request format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)

			if tc.callsSvc {
				var result *domain.CardMemoryState
				if tc.serviceErr == nil {
					result = postponed
				}
				s.decks.On("PostponeCard", mock.Anything, tc.cardID, 3).Return(result, tc.serviceErr).Once()
			}

			w := s.do(t, http.MethodPost, "/api/cards/"+tc.cardID+"/postpone", tc.body)
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())

			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, decode[shared.ErrorResponse](t, w).Error)
				return
			}
			resp := decode[CardStateResponse](t, w)
			assert.Equal(t, "c1", resp.CardID)
			assert.Equal(t, "review", resp.State)
			assert.Equal(t, 9, resp.ScheduledDays)
			require.NotNil(t, resp.LastReview)
			assert.True(t, resp.Due.Equal(resp.LastReview.AddDate(0, 0, resp.ScheduledDays)))
		})
	}
}

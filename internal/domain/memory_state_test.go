package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCardMemoryState(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	state, err := NewCardMemoryState("card-1", "deck-1", CardTypeWord, now)
	require.NoError(t, err)

	assert.Equal(t, StateNew, state.State)
	assert.Equal(t, now, state.Due)
	assert.Nil(t, state.LastReview)
	assert.Zero(t, state.Reps)
	assert.Zero(t, state.Lapses)
	assert.True(t, state.IsDue(now))

	_, err = NewCardMemoryState("", "deck-1", CardTypeWord, now)
	assert.ErrorIs(t, err, ErrInvalidCardState)
	assert.ErrorIs(t, err, ErrCardIDEmpty)
}

func TestCardMemoryStateValidate(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	reviewed := func() *CardMemoryState {
		lr := now.AddDate(0, 0, -3)
		return &CardMemoryState{
			ID:            "card-1",
			State:         StateReview,
			Stability:     5,
			Difficulty:    4,
			Due:           now,
			ScheduledDays: 3,
			Reps:          2,
			LastReview:    &lr,
		}
	}

	testCases := []struct {
		name    string
		mutate  func(s *CardMemoryState)
		wantErr bool
	}{
		{"valid review card", func(s *CardMemoryState) {}, false},
		{"negative stability", func(s *CardMemoryState) { s.Stability = -1 }, true},
		{"NaN stability", func(s *CardMemoryState) { s.Stability = math.NaN() }, true},
		{"infinite stability", func(s *CardMemoryState) { s.Stability = math.Inf(1) }, true},
		{"NaN difficulty", func(s *CardMemoryState) { s.Difficulty = math.NaN() }, true},
		{"NaN difficulty on new card", func(s *CardMemoryState) {
			s.State = StateNew
			s.LastReview = nil
			s.Difficulty = math.NaN()
		}, true},
		{"zero stability after review", func(s *CardMemoryState) { s.Stability = 0 }, true},
		{"difficulty above range", func(s *CardMemoryState) { s.Difficulty = 10.5 }, true},
		{"difficulty below range", func(s *CardMemoryState) { s.Difficulty = 0.5 }, true},
		{"unknown state", func(s *CardMemoryState) { s.State = RepetitionState(9) }, true},
		{"negative reps", func(s *CardMemoryState) { s.Reps = -1 }, true},
		{"negative lapses", func(s *CardMemoryState) { s.Lapses = -1 }, true},
		{"negative scheduled days", func(s *CardMemoryState) { s.ScheduledDays = -2 }, true},
		{"new card with review date", func(s *CardMemoryState) {
			s.State = StateNew
			s.Stability, s.Difficulty = 0, 0
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := reviewed()
			tc.mutate(s)
			err := s.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCardState)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCardMemoryStateCloneAndReset(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	lr := now.AddDate(0, 0, -1)
	orig := &CardMemoryState{
		ID:         "card-1",
		DeckID:     "deck-1",
		CardType:   CardTypePhrase,
		State:      StateRelearning,
		Stability:  1.2,
		Difficulty: 7,
		Due:        now,
		Reps:       4,
		Lapses:     1,
		LastReview: &lr,
		CreatedAt:  now.AddDate(0, -1, 0),
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)
	*clone.LastReview = now
	assert.Equal(t, lr, *orig.LastReview, "clone must not share the last review pointer")

	reset := orig.Reset(now)
	assert.Equal(t, StateNew, reset.State)
	assert.Equal(t, orig.ID, reset.ID)
	assert.Equal(t, orig.DeckID, reset.DeckID)
	assert.Equal(t, orig.CreatedAt, reset.CreatedAt)
	assert.Nil(t, reset.LastReview)
	assert.Equal(t, 4, reset.Reps, "lifetime counters survive a reset")
	assert.Equal(t, 1, reset.Lapses)
	assert.Zero(t, reset.Stability)
	assert.NoError(t, reset.Validate())
}

func TestCardMemoryStateIsDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	s := &CardMemoryState{ID: "c", State: StateReview, Due: now.Add(time.Hour)}
	assert.False(t, s.IsDue(now))
	assert.True(t, s.IsDue(now.Add(time.Hour)))

	s.State = StateNew
	assert.True(t, s.IsDue(now))
}

func TestRepetitionStateEncoding(t *testing.T) {
	t.Parallel()

	for _, st := range []RepetitionState{StateNew, StateLearning, StateReview, StateRelearning} {
		data, err := json.Marshal(st)
		require.NoError(t, err)

		var got RepetitionState
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, st, got)

		v, err := st.Value()
		require.NoError(t, err)

		var scanned RepetitionState
		require.NoError(t, scanned.Scan(v))
		assert.Equal(t, st, scanned)
	}

	assert.Equal(t, "RepetitionState(7)", RepetitionState(7).String())
	_, err := RepetitionState(7).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidCardState)

	var s RepetitionState
	assert.ErrorIs(t, s.Scan(int64(12)), ErrInvalidCardState)
	assert.ErrorIs(t, s.Scan("review"), ErrInvalidCardState)
	assert.ErrorIs(t, s.UnmarshalText([]byte("graduated")), ErrInvalidCardState)
}

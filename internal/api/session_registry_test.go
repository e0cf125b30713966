package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/domain/srs"
	"github.com/phrazzld/deckstudy/internal/service/study_session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*SessionRegistry, *memCards, *time.Time) {
	t.Helper()

	scheduler, err := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{DisableFuzz: true}))
	require.NoError(t, err)

	cards := newMemCards()
	cards.add(t, "c1", "deck-1", domain.CardTypeWord)
	cards.add(t, "c2", "deck-1", domain.CardTypeWord)
	cards.add(t, "c3", "deck-1", domain.CardTypePhrase)

	now := testNow
	registry := NewSessionRegistry(func() *study_session.Controller {
		return study_session.NewController(cards, scheduler, nil,
			study_session.WithClock(func() time.Time { return testNow }))
	}, nil)
	registry.clock = func() time.Time { return now }

	return registry, cards, &now
}

func TestSessionRegistry_StartGetEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, _, _ := newTestRegistry(t)

	first, handle, err := registry.Start(ctx, "deck-1", study_session.Filters{})
	require.NoError(t, err)
	_, second, err := registry.Start(ctx, "deck-1", study_session.Filters{})
	require.NoError(t, err)
	assert.NotEqual(t, handle.ID, second.ID, "each session gets its own controller")
	assert.Equal(t, 2, registry.Len())

	got, err := registry.Get(handle.ID)
	require.NoError(t, err)
	assert.Same(t, first, got)

	require.NoError(t, registry.End(handle.ID))
	assert.Equal(t, study_session.StateSetup, first.State())
	_, err = registry.Get(handle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, registry.End(handle.ID), ErrSessionNotFound)
	assert.Equal(t, 1, registry.Len())
}

func TestSessionRegistry_StartFailureRegistersNothing(t *testing.T) {
	t.Parallel()
	registry, _, _ := newTestRegistry(t)

	_, _, err := registry.Start(context.Background(), "deck-2", study_session.Filters{})
	assert.ErrorIs(t, err, study_session.ErrNoCardsDue)
	assert.Zero(t, registry.Len())
}

func TestSessionRegistry_Prune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, _, now := newTestRegistry(t)

	done, doneHandle, err := registry.Start(ctx, "deck-1", study_session.Filters{CardType: domain.CardTypePhrase})
	require.NoError(t, err)
	_, err = done.Rate(ctx, domain.OutcomePass)
	require.NoError(t, err)
	require.Equal(t, study_session.StateComplete, done.State())

	_, idleHandle, err := registry.Start(ctx, "deck-1", study_session.Filters{})
	require.NoError(t, err)

	*now = testNow.Add(10 * time.Minute)
	_, activeHandle, err := registry.Start(ctx, "deck-1", study_session.Filters{})
	require.NoError(t, err)

	removed := registry.Prune(5 * time.Minute)
	assert.Equal(t, 2, removed)

	_, err = registry.Get(doneHandle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = registry.Get(idleHandle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = registry.Get(activeHandle.ID)
	assert.NoError(t, err)
}

func TestSessionRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, _, _ := newTestRegistry(t)

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, handle, err := registry.Start(ctx, "deck-1", study_session.Filters{})
			if assert.NoError(t, err) {
				ids <- handle.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	for id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := registry.Get(id)
			assert.NoError(t, err)
			assert.NoError(t, registry.End(id))
		}(id)
	}
	wg.Wait()
	assert.Zero(t, registry.Len())
}

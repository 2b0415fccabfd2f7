package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pre-triage-server/internal/domain"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := domain.NewSession("s-1", "tr")
	sess.Known.Add("idrarda yanma")
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	assert.True(t, got.Known.Has("idrarda yanma"))
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := domain.NewSession("dup", "tr")
	require.NoError(t, store.Create(ctx, sess))
	assert.ErrorIs(t, store.Create(ctx, sess), domain.ErrConflict)
}

func TestMemoryStore_UpdateCAS(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := domain.NewSession("s-2", "tr")
	require.NoError(t, store.Create(ctx, sess))

	sess.TurnIndex = 1
	require.NoError(t, store.Update(ctx, sess, 0))

	// Stale expectation must not clobber the newer state.
	stale := sess.Clone()
	stale.TurnIndex = 1
	assert.ErrorIs(t, store.Update(ctx, stale, 0), domain.ErrConflict)

	sess.TurnIndex = 2
	require.NoError(t, store.Update(ctx, sess, 1))
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	store := NewMemoryStore()

	sess := domain.NewSession("ghost", "tr")
	assert.ErrorIs(t, store.Update(context.Background(), sess, 0), domain.ErrSessionNotFound)
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := domain.NewSession("s-3", "tr")
	require.NoError(t, store.Create(ctx, sess))

	// Mutating the caller's copy must not leak into the store.
	sess.Known.Add("ates")

	got, err := store.Get(ctx, "s-3")
	require.NoError(t, err)
	assert.False(t, got.Known.Has("ates"))

	// Mutating a read copy must not leak either.
	got.Known.Add("bulanti")
	again, err := store.Get(ctx, "s-3")
	require.NoError(t, err)
	assert.False(t, again.Known.Has("bulanti"))
}

func TestMemoryEventStore_ListBySession(t *testing.T) {
	store := NewMemoryEventStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []*domain.Event{
		{ID: "e-2", SessionID: "a", Type: domain.EventUserMessage, CreatedAt: base.Add(time.Second)},
		{ID: "e-1", SessionID: "a", Type: domain.EventSessionCreated, CreatedAt: base},
		{ID: "e-3", SessionID: "b", Type: domain.EventSessionCreated, CreatedAt: base},
	}
	for _, e := range events {
		require.NoError(t, store.Append(ctx, e))
	}

	got, err := store.ListBySession(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e-1", got[0].ID)
	assert.Equal(t, "e-2", got[1].ID)
}

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/jobmesh/core"
)

func newTestSession(sessionID string) *Session {
	return New(sessionID, "run-"+sessionID, core.NewState(sessionID, "user-1", "job_search", "find golang roles"))
}

func TestInMemoryStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("sess-1")))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "find golang roles", got.State.UserInput)
}

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_SaveOverwrites(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	sess := newTestSession("sess-1")
	require.NoError(t, store.Save(ctx, sess))

	sess.MarkRunning()
	sess.Steps = 3
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, 3, got.Steps)
}

func TestInMemoryStore_IsolatesStoredRecords(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	sess := newTestSession("sess-1")
	require.NoError(t, store.Save(ctx, sess))

	// Mutations of the original and of a retrieved clone must not reach
	// the stored record.
	sess.Status = StatusFailed
	sess.State.Scratch["leak"] = true

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	got.State.Scratch["leak"] = true

	again, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
	assert.NotContains(t, again.State.Scratch, "leak")
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("sess-1")))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an unknown id is not an error.
	require.NoError(t, store.Delete(ctx, "sess-1"))
}

func TestInMemoryStore_List(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"sess-c", "sess-a", "sess-b"} {
		require.NoError(t, store.Save(ctx, newTestSession(id)))
	}

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-a", "sess-b", "sess-c"}, ids)
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	store := NewInMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, newTestSession("sess-1")), context.Canceled)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, store.Delete(ctx, "sess-1"), context.Canceled)

	_, err = store.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract exercises the Store behavior every implementation must
// share. Implementations call it from their own tests.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405.000")

	rec := Record{
		ID:        id,
		Flow:      "contract-flow",
		Status:    "completed",
		StartedAt: time.Now().Add(-time.Minute).UTC().Truncate(time.Second),
		EndedAt:   time.Now().UTC().Truncate(time.Second),
		Entries: []Entry{
			{Author: "bot", Text: "What is your name?", At: time.Now().UTC().Truncate(time.Second)},
			{Author: "user", Text: "George", At: time.Now().UTC().Truncate(time.Second)},
		},
	}

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, loaded.ID)
		assert.Equal(t, rec.Flow, loaded.Flow)
		assert.Equal(t, rec.Status, loaded.Status)
		require.Len(t, loaded.Entries, 2)
		assert.Equal(t, "George", loaded.Entries[1].Text)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := store.Get(ctx, "unknown-"+id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list contains saved id", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)
	})

	t.Run("save replaces", func(t *testing.T) {
		updated := rec
		updated.Status = "failed"
		require.NoError(t, store.Save(ctx, updated))

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "failed", loaded.Status)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id))
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, id)

		require.NoError(t, store.Delete(ctx, id), "deleting twice is a no-op")
	})
}

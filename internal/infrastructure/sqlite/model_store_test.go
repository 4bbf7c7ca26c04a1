package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcompare/specmatch/internal/domain"
)

func newTestStore(t *testing.T, retain int) *ModelStore {
	t.Helper()
	store, err := NewModelStore(filepath.Join(t.TempDir(), "models.db"), retain, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func snapshot(i int) *domain.ModelSnapshot {
	return &domain.ModelSnapshot{
		EpochID:   fmt.Sprintf("epoch-%d", i),
		Version:   domain.ModelVersion,
		BestModel: "random_forest",
		TrainedAt: time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		Payload:   []byte(fmt.Sprintf(`{"epochId":"epoch-%d"}`, i)),
	}
}

func TestModelStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		store := newTestStore(t, 0)
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("load returns the latest save", func(t *testing.T) {
		store := newTestStore(t, 0)
		require.NoError(t, store.Save(ctx, snapshot(1)))
		require.NoError(t, store.Save(ctx, snapshot(2)))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		want := snapshot(2)
		assert.Equal(t, want.EpochID, got.EpochID)
		assert.Equal(t, want.Version, got.Version)
		assert.Equal(t, want.BestModel, got.BestModel)
		assert.True(t, want.TrainedAt.Equal(got.TrainedAt))
		assert.Equal(t, want.Payload, got.Payload)
	})

	t.Run("old snapshots are pruned", func(t *testing.T) {
		store := newTestStore(t, 2)
		for i := 0; i < 4; i++ {
			require.NoError(t, store.Save(ctx, snapshot(i)))
		}
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "epoch-3", got.EpochID)
	})

	t.Run("survives reopening", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "models.db")
		store, err := NewModelStore(path, 0, zerolog.Nop())
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, snapshot(7)))
		require.NoError(t, store.Close())

		reopened, err := NewModelStore(path, 0, zerolog.Nop())
		require.NoError(t, err)
		defer reopened.Close()
		got, err := reopened.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, snapshot(7).Payload, got.Payload)
	})
}

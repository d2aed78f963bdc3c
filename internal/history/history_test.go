package history

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&RunRecord{}))

	return NewStore(db, nil)
}

func TestStore_ArchiveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec, err := store.Archive(ctx, "pipeline", "write a guide", "completed",
		"## Pipeline Report", []map[string]any{{"stage": "research"}})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "pipeline", got.Topology)
	assert.Equal(t, "write a guide", got.Task)
	assert.Equal(t, "completed", got.Outcome)
	assert.Contains(t, got.TraceJSON, "research")
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_Recent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i, topo := range []string{"pipeline", "controller", "pipeline"} {
		_, err := store.Archive(ctx, topo, "task", "completed", "report", nil)
		require.NoError(t, err)
		_ = i
	}

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pipelines, err := store.Recent(ctx, "pipeline", 10)
	require.NoError(t, err)
	assert.Len(t, pipelines, 2)

	one, err := store.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Archive(ctx, "chain", "task", "completed", "report", nil)
	require.NoError(t, err)

	// Nothing older than an hour ago.
	n, err := store.Purge(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	// Everything older than the future.
	n, err = store.Purge(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

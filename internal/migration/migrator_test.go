package migration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentlink/config"
	"github.com/BaSui01/agentlink/internal/database"
	"github.com/BaSui01/agentlink/internal/history"
)

func openTestDB(t *testing.T) (*Migrator, *history.Store) {
	t.Helper()

	cfg := config.HistoryConfig{
		Driver: "sqlite",
		Name:   filepath.Join(t.TempDir(), "history.db"),
	}
	db, err := database.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	sqlDB, err := db.DB()
	require.NoError(t, err)

	mg, err := New(sqlDB, cfg.Driver, zap.NewNop())
	require.NoError(t, err)
	return mg, history.NewStore(db, zap.NewNop())
}

func TestUpCreatesRunRecordsTable(t *testing.T) {
	mg, store := openTestDB(t)
	require.NoError(t, mg.Up())

	rec, err := store.Archive(context.Background(), "pipeline", "task", "completed", "report", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpIsIdempotent(t *testing.T) {
	mg, _ := openTestDB(t)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Up())

	version, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestVersionOnFreshDatabaseIsZero(t *testing.T) {
	mg, _ := openTestDB(t)

	version, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Zero(t, version)
}

func TestDownRemovesTable(t *testing.T) {
	mg, store := openTestDB(t)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Down())

	_, err := store.Count(context.Background())
	assert.Error(t, err)
}

func TestUnsupportedDriverRejected(t *testing.T) {
	cfg := config.HistoryConfig{
		Driver: "sqlite",
		Name:   filepath.Join(t.TempDir(), "x.db"),
	}
	db, err := database.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	sqlDB, err := db.DB()
	require.NoError(t, err)

	_, err = New(sqlDB, "oracle", zap.NewNop())
	assert.ErrorContains(t, err, "unsupported driver")
}

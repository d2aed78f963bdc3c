package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/BaSui01/agentlink/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := config.HistoryConfig{
		Driver:       "sqlite",
		Name:         filepath.Join(t.TempDir(), "runs.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}

	db, err := Open(cfg, nil)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Ping(context.Background(), db))

	stats, err := Stats(db)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MaxOpenConnections)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.HistoryConfig{Driver: "mongodb"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestClose_Idempotent(t *testing.T) {
	cfg := config.HistoryConfig{Driver: "sqlite", Name: filepath.Join(t.TempDir(), "runs.db")}
	db, err := Open(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, Close(db))
	// Second close surfaces the driver's error, if any; it must not
	// panic.
	_ = Close(db)
}

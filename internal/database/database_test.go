package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db") + "?_loc=UTC"

	db, err := Open(ctx, "sqlite3", dsn, Options{MaxOpenConns: 10})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	var fk int
	require.NoError(t, db.GetContext(ctx, &fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"loans", "installments", "fines", "display_sequences"} {
		var n int
		err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "whatever", Options{})
	assert.Error(t, err)
}

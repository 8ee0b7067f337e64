package iocache

import (
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/migdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateHistory_NoneBackend(t *testing.T) {
	_, err := MigrateHistory(schema.NoneBackend, "", -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")
}

func TestMigrateHistory_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	msg, err := MigrateHistory(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.Equal(t, "Successfully migrated from version 0 to version 2", msg)

	msg, err = MigrateHistory(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.Contains(t, msg, "already at the latest version")

	msg, err = MigrateHistory(schema.SQLiteBackend, dbPath, 1)
	require.NoError(t, err)
	assert.Equal(t, "Successfully migrated from version 2 to version 1", msg)

	msg, err = MigrateHistory(schema.SQLiteBackend, dbPath, 0)
	require.NoError(t, err)
	assert.Equal(t, "Successfully rolled back from version 1 to version 0", msg)

	msg, err = MigrateHistory(schema.SQLiteBackend, dbPath, 2)
	require.NoError(t, err)
	assert.Contains(t, msg, "to version 2")

	// A store opened on a migrated database works as usual
	store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	_, err = store.BeginRun(time.Now(), nil)
	assert.NoError(t, err)
}

func TestMigrateHistory_AfterStoreCreatedTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Idempotent DDL lets migrate adopt tables the store already created
	_, err = MigrateHistory(schema.SQLiteBackend, dbPath, -1)
	assert.NoError(t, err)
}

func TestMigrationSourcesMatch(t *testing.T) {
	var reference []string
	for _, backend := range []schema.DatabaseBackend{schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend} {
		sub, err := migrationSource(backend)
		require.NoError(t, err)
		names, err := fs.Glob(sub, "*.sql")
		require.NoError(t, err)
		require.NotEmpty(t, names)
		if reference == nil {
			reference = names
			continue
		}
		assert.Equal(t, reference, names, "every backend ships the same migration versions")
	}

	_, err := migrationSource(schema.NoneBackend)
	assert.Error(t, err)
}

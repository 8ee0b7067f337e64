//go:build database

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/migdelta/internal/iocache"
	"github.com/huangsam/migdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMySQL starts a MySQL container and returns its connection string.
func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "migdelta",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	return fmt.Sprintf("root:secret123@tcp(%s:%s)/migdelta?parseTime=true", host, port.Port())
}

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		// The server logs readiness twice: once for the init pass, once for real
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

// exerciseBackend drives the CLI against a database backend for both cache and history.
func exerciseBackend(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()
	root := t.TempDir()
	paths := writeFixtures(t, root)

	env := []string{
		"MIGDELTA_CACHE_BACKEND=" + string(backend),
		"MIGDELTA_CACHE_DB_CONNECT=" + connStr,
		"MIGDELTA_HISTORY_BACKEND=" + string(backend),
		"MIGDELTA_HISTORY_DB_CONNECT=" + connStr,
	}

	_, err := runMigdelta(t, root, env, "cache", "clear")
	require.NoError(t, err)

	_, err = runMigdelta(t, root, env, "history", "clear")
	require.NoError(t, err)

	out, err := runMigdelta(t, root, env, "history", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "to version 2")

	// The second diff is served from the parse cache and must agree with the first
	var first string
	for i := range 2 {
		args := append([]string{"diff", "--qualify-fields", "--output", "json"}, paths...)
		out, err = runMigdelta(t, root, env, args...)
		require.NoError(t, err)
		if i == 0 {
			first = out
			continue
		}
		assert.JSONEq(t, first, out)
	}

	var result schema.Result
	require.NoError(t, json.Unmarshal([]byte(first), &result))
	require.Contains(t, result, "shop.widget")
	assert.Equal(t, schema.CreatedStatus, result["shop.widget"].Status)
	assert.Equal(t, []string{"id", "subtitle"}, result["shop.widget"].Added)

	out, err = runMigdelta(t, root, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected: true")
	assert.Contains(t, out, "Total Entries: 3")

	out, err = runMigdelta(t, root, env, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 2")

	prefix := filepath.Join(root, "history")
	_, err = runMigdelta(t, root, env, "history", "export", "--output-file", prefix)
	require.NoError(t, err)
	_, err = os.Stat(prefix + ".runs.parquet")
	assert.NoError(t, err)
	_, err = os.Stat(prefix + ".model_changes.parquet")
	assert.NoError(t, err)
}

// exerciseHistoryStore checks the history store directly so dialect-specific SQL is covered.
func exerciseHistoryStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()
	require.NoError(t, iocache.ClearHistory(backend, "", connStr))

	store, err := iocache.NewHistoryStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Now().Add(-time.Second)
	runID, err := store.BeginRun(start, map[string]any{"qualify_fields": true})
	require.NoError(t, err)
	renamed := "shop.thing"
	require.NoError(t, store.RecordModelChange(runID, "shop.gadget", schema.ModelReport{
		Status:      schema.ModifiedStatus,
		RenamedFrom: &renamed,
		Removed:     []string{"legacy"},
	}))
	require.NoError(t, store.EndRun(runID, start.Add(time.Second), 1, 1))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int32(1), runs[0].TotalModels)

	changes, err := store.GetAllModelChanges()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].RenamedFrom)
	assert.Equal(t, "shop.thing", *changes[0].RenamedFrom)
	assert.Equal(t, "legacy", changes[0].Removed)
}

// TestMigdeltaWithMySQL tests the migdelta CLI with a MySQL backend.
func TestMigdeltaWithMySQL(t *testing.T) {
	connStr := startMySQL(t)
	exerciseBackend(t, schema.MySQLBackend, connStr)
	exerciseHistoryStore(t, schema.MySQLBackend, connStr)
}

// TestMigdeltaWithPostgres tests the migdelta CLI with a PostgreSQL backend.
func TestMigdeltaWithPostgres(t *testing.T) {
	connStr := startPostgres(t)
	exerciseBackend(t, schema.PostgreSQLBackend, connStr)
	exerciseHistoryStore(t, schema.PostgreSQLBackend, connStr)
}

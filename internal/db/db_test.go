package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_AppliesMigrations(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)

	for _, table := range []string{"locations", "meta", "threats", "threat_runs"} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Already at the latest version.
	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
}

func TestMigrateDownAndStatus(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.MigrateDown())
	status, err := db.GetMigrationStatus()
	require.NoError(t, err)
	assert.True(t, status.SchemaMigrationsExists)
	assert.Zero(t, status.CurrentVersion)
	assert.Equal(t, uint(1), status.LatestVersion)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name='threats'`).Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp())
	status, err = db.GetMigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.CurrentVersion)
	assert.False(t, status.Dirty)
}

func TestGetMigrationStatus_FreshDatabase(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	status, err := db.GetMigrationStatus()
	require.NoError(t, err)
	assert.False(t, status.SchemaMigrationsExists)
	assert.Zero(t, status.CurrentVersion)
}

func TestUnixSeconds(t *testing.T) {
	ts := time.Date(2023, 11, 8, 12, 34, 56, 789000000, time.UTC)
	assert.True(t, ts.Equal(fromUnixSeconds(unixSeconds(ts))))
	assert.False(t, nullUnix(time.Time{}).Valid)
	assert.True(t, nullUnix(ts).Valid)
}

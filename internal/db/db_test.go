package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesFullSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	pair, err := Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })

	columns, err := tableColumns(pair.Writer(), "schedules")
	require.NoError(t, err)
	require.True(t, columns["id"])
	require.True(t, columns["date"])
	require.True(t, columns["plan"])
	require.True(t, columns["created_at"])
	require.True(t, columns["prompt"])

	settingsColumns, err := tableColumns(pair.Writer(), "settings")
	require.NoError(t, err)
	require.True(t, settingsColumns["key"])
	require.True(t, settingsColumns["value"])

	var version int
	require.NoError(t, pair.Reader().QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, SchemaVersion(), version)
}

func TestInitMigratesLegacyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	// Simulate a database created by an older build: schedules without
	// created_at or prompt, with rows already present.
	legacy, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		plan TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = legacy.Exec("INSERT INTO schedules (date, plan) VALUES (?, ?)", "2026-01-15", `[{"time":"9-10","task":"standup"}]`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	pair, err := Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })

	columns, err := tableColumns(pair.Writer(), "schedules")
	require.NoError(t, err)
	require.True(t, columns["created_at"])
	require.True(t, columns["prompt"])

	// Pre-existing rows get created_at backfilled.
	var createdAt sql.NullString
	require.NoError(t, pair.Reader().QueryRow("SELECT created_at FROM schedules WHERE date = ?", "2026-01-15").Scan(&createdAt))
	require.True(t, createdAt.Valid)
	require.NotEmpty(t, createdAt.String)

	// Subsequent inserts can populate both new columns without error.
	_, err = pair.Writer().Exec(
		"INSERT INTO schedules (date, plan, prompt, created_at) VALUES (?, ?, ?, ?)",
		"2026-01-16", "[]", "write the report", NowLocal(),
	)
	require.NoError(t, err)
}

func TestInitIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	pair, err := Init(dbPath)
	require.NoError(t, err)
	require.NoError(t, pair.Close())

	pair, err = Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })

	var version int
	require.NoError(t, pair.Reader().QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, SchemaVersion(), version)
}

func TestInitRequiresPath(t *testing.T) {
	_, err := Init("")
	require.Error(t, err)
}

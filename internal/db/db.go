package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DBPair holds separate read and write connections for optimal SQLite concurrency.
// With WAL mode, readers don't block writers and vice versa.
// Using separate pools allows concurrent reads while serializing writes.
type DBPair struct {
	reader *sql.DB // Multiple connections for concurrent reads
	writer *sql.DB // Single connection for serialized writes
}

// Reader returns the read-only database connection pool.
func (p *DBPair) Reader() *sql.DB { return p.reader }

// Writer returns the read-write database connection pool.
func (p *DBPair) Writer() *sql.DB { return p.writer }

// Close closes both database connections.
func (p *DBPair) Close() error {
	var errs []error
	if err := p.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reader: %w", err))
	}
	if err := p.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Init opens the SQLite database, applies the base schema and runs all
// pending migrations. Returns a DBPair with separate reader and writer pools.
func Init(dbPath string) (*DBPair, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	// Writer: single connection, handles all writes.
	// - _journal=WAL: write-ahead logging for concurrent reads
	// - _busy_timeout=5000: wait up to 5 seconds for locks
	writerConnStr := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000&cache=shared&mode=rwc", dbPath)
	writer, err := sql.Open("sqlite3", writerConnStr)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1) // SQLite serializes writes anyway
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(time.Hour)

	if _, err := writer.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		writer.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}

	if _, err := writer.Exec(schemaSQL); err != nil {
		writer.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := runMigrations(writer); err != nil {
		writer.Close()
		return nil, err
	}

	// Reader: multiple connections for concurrent reads.
	readerConnStr := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000&cache=shared&mode=ro", dbPath)
	reader, err := sql.Open("sqlite3", readerConnStr)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)
	reader.SetMaxIdleConns(2)
	reader.SetConnMaxLifetime(time.Hour)

	return &DBPair{reader: reader, writer: writer}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// migrations are applied in order based on PRAGMA user_version; a database at
// version N has had migrations[0..N-1] applied. Each migration runs in its
// own transaction and bumps user_version on commit, so a database is always
// at one of a fixed set of known schema versions and query code targets the
// final schema unconditionally.
//
// Migrations must stay safe against databases that were created or altered
// outside this code path, hence the column-presence checks before ALTER.
var migrations = []func(tx *sql.Tx) error{
	// 1: add schedules.created_at and backfill pre-existing rows with the
	// current local time so the "most recent per date" ordering holds.
	func(tx *sql.Tx) error {
		columns, err := tableColumns(tx, "schedules")
		if err != nil {
			return err
		}
		if !columns["created_at"] {
			if _, err := tx.Exec("ALTER TABLE schedules ADD COLUMN created_at TEXT"); err != nil {
				return fmt.Errorf("add schedules.created_at: %w", err)
			}
		}
		if _, err := tx.Exec("UPDATE schedules SET created_at = ? WHERE created_at IS NULL", NowLocal()); err != nil {
			return fmt.Errorf("backfill schedules.created_at: %w", err)
		}
		return nil
	},
	// 2: add schedules.prompt (nullable, original free-text user input).
	func(tx *sql.Tx) error {
		columns, err := tableColumns(tx, "schedules")
		if err != nil {
			return err
		}
		if !columns["prompt"] {
			if _, err := tx.Exec("ALTER TABLE schedules ADD COLUMN prompt TEXT"); err != nil {
				return fmt.Errorf("add schedules.prompt: %w", err)
			}
		}
		return nil
	},
	// 3: settings key/value table and the date index used by by-date reads.
	func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)
		`); err != nil {
			return fmt.Errorf("create settings: %w", err)
		}
		if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_schedules_date ON schedules(date)"); err != nil {
			return fmt.Errorf("create idx_schedules_date: %w", err)
		}
		return nil
	},
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if err := migrations[i](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("bump user_version to %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion returns the number of known migrations, i.e. the user_version
// a fully migrated database reports.
func SchemaVersion() int {
	return len(migrations)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func tableColumns(q querier, table string) (map[string]bool, error) {
	rows, err := q.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultVal sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return columns, nil
}

// NowLocal returns the current local wall-clock time in the timestamp format
// stored in created_at.
func NowLocal() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

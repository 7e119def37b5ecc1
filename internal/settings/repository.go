package settings

import (
	"database/sql"
	"errors"
	"log"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository is a small key/value persistence facility over the settings
// table. Callers treat setting writes as best-effort: a failed Set is logged
// and reported, never escalated to a request failure.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
	logger *log.Logger
}

// NewRepository creates a new settings Repository.
func NewRepository(dbPair DBPair, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer(), logger: logger}
}

// Get returns the stored value for key, or fallback when the key is absent
// or the read fails.
func (r *Repository) Get(key, fallback string) string {
	var value string
	err := r.reader.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Printf("settings: read %q failed: %v", key, err)
		}
		return fallback
	}
	return value
}

// Set upserts a key/value pair and reports whether the write succeeded.
func (r *Repository) Set(key, value string) bool {
	_, err := r.writer.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		r.logger.Printf("settings: write %q failed: %v", key, err)
		return false
	}
	return true
}

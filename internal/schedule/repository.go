package schedule

import (
	"database/sql"
	"encoding/json"
	"errors"
)

// TaskEntry is one planned task inside a schedule's plan. Plans are stored as
// opaque JSON text; unknown fields are ignored on decode.
type TaskEntry struct {
	Time     string `json:"time,omitempty"`
	Task     string `json:"task,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Schedule is the persisted plan for a given day as surfaced to callers.
type Schedule struct {
	ID        int64       `json:"id"`
	Date      string      `json:"date"`
	Plan      []TaskEntry `json:"plan"`
	Prompt    *string     `json:"prompt"`
	CreatedAt *string     `json:"created_at"`
}

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository handles database operations for schedules.
// Uses separate reader/writer connections for optimal SQLite concurrency.
type Repository struct {
	reader *sql.DB // For SELECT queries
	writer *sql.DB // For INSERT/UPDATE/DELETE
}

// NewRepository creates a new schedule Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Save inserts a new schedule row and returns its id. planText is stored
// verbatim; createdAt is the local "YYYY-MM-DD HH:MM:SS" insert time.
func (r *Repository) Save(date, planText string, prompt *string, createdAt string) (int64, error) {
	result, err := r.writer.Exec(
		"INSERT INTO schedules (date, plan, prompt, created_at) VALUES (?, ?, ?, ?)",
		date, planText, prompt, createdAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const selectColumns = "id, date, plan, prompt, created_at"

// GetLatestForDate returns the most recent schedule for a date, or nil when
// none exists. Recency is created_at descending with id as the tiebreaker.
func (r *Repository) GetLatestForDate(date string) (*Schedule, error) {
	row := r.reader.QueryRow(
		"SELECT "+selectColumns+" FROM schedules WHERE date = ? ORDER BY datetime(created_at) DESC, id DESC LIMIT 1",
		date,
	)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// GetAll returns every schedule, newest date first, most recent edit first
// within a date.
func (r *Repository) GetAll() ([]Schedule, error) {
	rows, err := r.reader.Query(
		"SELECT " + selectColumns + " FROM schedules ORDER BY date DESC, datetime(created_at) DESC, id DESC",
	)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

// GetByDate returns all schedules for one date, most recent first.
func (r *Repository) GetByDate(date string) ([]Schedule, error) {
	rows, err := r.reader.Query(
		"SELECT "+selectColumns+" FROM schedules WHERE date = ? ORDER BY datetime(created_at) DESC, id DESC",
		date,
	)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

// UpdatePlan replaces the plan of one schedule. Returns the number of rows
// affected; zero for an unknown id is not an error.
func (r *Repository) UpdatePlan(id int64, planText string) (int64, error) {
	result, err := r.writer.Exec("UPDATE schedules SET plan = ? WHERE id = ?", planText, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes one schedule by id. Returns rows affected; zero when absent.
func (r *Repository) Delete(id int64) (int64, error) {
	result, err := r.writer.Exec("DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteAll wipes the schedules table. Used by import with replaceExisting.
func (r *Repository) DeleteAll() error {
	_, err := r.writer.Exec("DELETE FROM schedules")
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var s Schedule
	var planText string
	var prompt, createdAt sql.NullString
	if err := row.Scan(&s.ID, &s.Date, &planText, &prompt, &createdAt); err != nil {
		return nil, err
	}
	s.Plan = parsePlan(planText)
	if prompt.Valid {
		s.Prompt = &prompt.String
	}
	if createdAt.Valid {
		s.CreatedAt = &createdAt.String
	}
	return &s, nil
}

func collectSchedules(rows *sql.Rows) ([]Schedule, error) {
	defer rows.Close()

	schedules := make([]Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

// parsePlan decodes stored plan text into its task list. This is a deliberate
// fallback policy, not error swallowing: text that is not a JSON array
// decodes to an empty list so read paths never fail on bad stored plans.
func parsePlan(planText string) []TaskEntry {
	var entries []TaskEntry
	if err := json.Unmarshal([]byte(planText), &entries); err != nil {
		return []TaskEntry{}
	}
	if entries == nil {
		return []TaskEntry{}
	}
	return entries
}

package db

// Base schema, version 0. Matches the oldest databases in the field: a bare
// schedules table without created_at or prompt. Later columns arrive through
// the versioned migrations in db.go so that a pre-existing database and a
// fresh one converge on the same final schema.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS schedules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  plan TEXT NOT NULL
);
`

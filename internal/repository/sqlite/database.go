package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Database wraps the SQL database connection.
type Database struct {
	db *sql.DB
}

// New creates a new database connection and initializes the schema.
func New(dbPath string) (*Database, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent sweepers and request handlers.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	database := &Database{db: db}

	if err := database.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying database connection.
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// Timestamps are stored as UTC millisecond integers so SQL comparisons like
// scheduled_for <= now are exact regardless of the driver's text formatting.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func toNullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

// initSchema creates the database tables.
func (d *Database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stage_definitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		day_part TEXT NOT NULL,
		unlock_offset_minutes INTEGER NOT NULL,
		order_index INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stage_contents (
		stage_id INTEGER PRIMARY KEY,
		video_url TEXT NOT NULL,
		image_url TEXT NOT NULL,
		message_text TEXT NOT NULL,
		FOREIGN KEY (stage_id) REFERENCES stage_definitions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL,
		guest_name TEXT NOT NULL,
		utm_source TEXT NOT NULL DEFAULT '',
		utm_medium TEXT NOT NULL DEFAULT '',
		utm_campaign TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS stage_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		stage_id INTEGER NOT NULL,
		available_at INTEGER NOT NULL,
		completed_at INTEGER,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (stage_id) REFERENCES stage_definitions(id),
		UNIQUE(session_id, stage_id)
	);

	CREATE TABLE IF NOT EXISTS stage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		stage_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (stage_id) REFERENCES stage_definitions(id)
	);

	CREATE TABLE IF NOT EXISTS notification_schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL UNIQUE,
		scheduled_for INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		sent_at INTEGER,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		claim_expires_at INTEGER,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_stage_entries_session ON stage_entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_stage_events_session ON stage_events(session_id);
	CREATE INDEX IF NOT EXISTS idx_notification_schedules_due ON notification_schedules(status, scheduled_for);
	`

	_, err := d.db.Exec(schema)
	return err
}

package database

import (
	"database/sql"
	"fmt"
	"strings"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		chat_id BIGINT NOT NULL,
		task_text TEXT NOT NULL,
		notes TEXT,
		location TEXT,
		scheduled_time_utc TIMESTAMPTZ NOT NULL,
		user_timezone TEXT NOT NULL DEFAULT 'UTC',
		status TEXT NOT NULL DEFAULT 'pending',
		initial_reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
		follow_up_sent BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_type TEXT,
		recurrence_time TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id BIGINT PRIMARY KEY,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		language TEXT NOT NULL DEFAULT 'uz',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		user_id BIGINT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_status_time ON reminders(status, scheduled_time_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limits_user_time ON rate_limits(user_id, requested_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		chat_id INTEGER NOT NULL,
		task_text TEXT NOT NULL,
		notes TEXT,
		location TEXT,
		scheduled_time_utc TIMESTAMP NOT NULL,
		user_timezone TEXT NOT NULL DEFAULT 'UTC',
		status TEXT NOT NULL DEFAULT 'pending',
		initial_reminder_sent BOOLEAN NOT NULL DEFAULT 0,
		follow_up_sent BOOLEAN NOT NULL DEFAULT 0,
		recurrence_type TEXT,
		recurrence_time TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id INTEGER PRIMARY KEY,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		language TEXT NOT NULL DEFAULT 'uz',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		user_id INTEGER NOT NULL,
		requested_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_status_time ON reminders(status, scheduled_time_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limits_user_time ON rate_limits(user_id, requested_at)`,
}

// additiveColumns are applied after the base schema so that databases created
// by earlier versions (before recurrence support) pick up the new columns.
// "duplicate column" failures are expected and ignored.
var additiveColumns = []string{
	`ALTER TABLE reminders ADD COLUMN recurrence_type TEXT`,
	`ALTER TABLE reminders ADD COLUMN recurrence_time TEXT`,
}

// Migrate creates the schema for the given driver ("postgres" or "sqlite3")
// and applies additive column migrations. It is idempotent and safe to run on
// every startup.
func Migrate(db *sql.DB, driver string) error {
	var schema []string
	switch driver {
	case "postgres":
		schema = postgresSchema
	case "sqlite3":
		schema = sqliteSchema
	default:
		return fmt.Errorf("unknown database driver %q", driver)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
	}

	for _, stmt := range additiveColumns {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("additive migration failed: %w", err)
		}
	}

	return nil
}

func isDuplicateColumn(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate column") || // sqlite / postgres 42701 text
		strings.Contains(msg, "already exists")
}

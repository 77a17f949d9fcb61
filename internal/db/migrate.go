package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                  TEXT PRIMARY KEY,
		email               TEXT NOT NULL UNIQUE,
		display_name        TEXT NOT NULL DEFAULT '',
		gems                INTEGER NOT NULL DEFAULT 0 CHECK(gems >= 0),
		email_opt_in        INTEGER NOT NULL DEFAULT 1,
		last_digest_sent_at TEXT,
		pet_vitality        INTEGER NOT NULL DEFAULT 100
		                    CHECK(pet_vitality BETWEEN 0 AND 100),
		pet_last_decay_at   TEXT NOT NULL,
		inv_food            INTEGER NOT NULL DEFAULT 0 CHECK(inv_food BETWEEN 0 AND 99),
		inv_milk            INTEGER NOT NULL DEFAULT 0 CHECK(inv_milk BETWEEN 0 AND 99),
		inv_toys            INTEGER NOT NULL DEFAULT 0 CHECK(inv_toys BETWEEN 0 AND 99),
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		category     TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'pending'
		             CHECK(status IN ('pending','completed')),
		completed_at TEXT,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status)`,

	// task_id is deliberately NOT a foreign key: a session may outlive its
	// task (weak reference), which disqualifies it from gating but must
	// never fault a lookup.
	`CREATE TABLE IF NOT EXISTS sessions (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		task_id          TEXT,
		type             TEXT NOT NULL DEFAULT 'pomodoro',
		start_at         TEXT NOT NULL,
		end_at           TEXT,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		completed        INTEGER NOT NULL DEFAULT 0,
		interruptions    INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, start_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_task ON sessions(user_id, task_id)`,

	// At most one running session per user, enforced at the storage layer so
	// concurrent starts cannot both slip past the service pre-check.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_user_running
		ON sessions(user_id) WHERE completed = 0`,

	`CREATE TABLE IF NOT EXISTS activity_events (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		kind       TEXT NOT NULL CHECK(kind IN ('idle','deviation')),
		context    TEXT NOT NULL DEFAULT '',
		timestamp  TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_events(user_id, timestamp)`,

	`CREATE TABLE IF NOT EXISTS notification_log (
		id      TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		sent_at TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '{}'
	)`,

	`CREATE INDEX IF NOT EXISTS idx_notification_user_sent ON notification_log(user_id, sent_at)`,
}

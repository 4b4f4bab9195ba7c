package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered, embedded schema history. Each entry is applied
// at most once, tracked in schema_migrations by its position (1-based).
var migrations = []string{
	// subjects: the recurrence rule is stored inline. meeting_link is UNIQUE
	// so two subjects can never resolve to the same meeting code, which keeps
	// the (meeting_code, day) session key unambiguous.
	`CREATE TABLE subjects (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		meeting_link TEXT NOT NULL UNIQUE,
		weekdays     TEXT NOT NULL DEFAULT '',
		start_time   TEXT NOT NULL DEFAULT '',
		end_time     TEXT NOT NULL DEFAULT '',
		starts_on    TEXT,
		ends_on      TEXT,
		active       INTEGER NOT NULL DEFAULT 1,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	// class_sessions: UNIQUE(meeting_code, day) is the correctness boundary
	// for concurrent materialization across processes.
	`CREATE TABLE class_sessions (
		id           TEXT PRIMARY KEY,
		subject_id   TEXT NOT NULL REFERENCES subjects(id),
		meeting_code TEXT NOT NULL,
		day          TEXT NOT NULL,
		starts_at    TEXT NOT NULL,
		ends_at      TEXT NOT NULL,
		first_third  TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'scheduled',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		UNIQUE (meeting_code, day)
	)`,
	`CREATE TABLE enrollments (
		subject_id TEXT NOT NULL REFERENCES subjects(id),
		student_id TEXT NOT NULL,
		UNIQUE (subject_id, student_id)
	)`,
	`CREATE TABLE attendance (
		session_id TEXT NOT NULL REFERENCES class_sessions(id),
		student_id TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'absent',
		created_at TEXT NOT NULL,
		UNIQUE (session_id, student_id)
	)`,
	`CREATE TABLE session_credentials (
		session_id TEXT PRIMARY KEY REFERENCES class_sessions(id),
		token_hash TEXT NOT NULL,
		issued_at  TEXT NOT NULL
	)`,
}

// Migrate applies pending schema migrations inside a single transaction.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	return cp.WithTransaction(ctx, func(tx *sql.Tx) error {
		var current int
		if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		for i := current; i < len(migrations); i++ {
			version := i + 1
			if _, err := tx.Exec(migrations[i]); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", version, err)
			}
		}
		return nil
	})
}

package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// SessionStore implements persistence.SessionStore using SQLite. The
// UNIQUE(meeting_code, day) constraint makes FindOrCreate safe across
// processes: losers of an insert race read the winner's row.
type SessionStore struct {
	pool *ConnectionPool
}

// NewSessionStore creates a new SQLite session store.
func NewSessionStore(pool *ConnectionPool) *SessionStore {
	return &SessionStore{pool: pool}
}

// FindOrCreate inserts the session when the key is absent and otherwise
// returns the existing row untouched. created is true only when this call
// performed the insert.
func (s *SessionStore) FindOrCreate(ctx context.Context, key persistence.SessionKey, insert persistence.SessionInsert) (persistence.ClassSession, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return persistence.ClassSession{}, false, err
	}
	if insert.ID == "" {
		return persistence.ClassSession{}, false, persistence.ErrConstraintViolation
	}

	status := insert.Status
	if status == "" {
		status = persistence.StatusScheduled
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO class_sessions (id, subject_id, meeting_code, day, starts_at, ends_at, first_third, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (meeting_code, day) DO NOTHING
	`

	result, err := s.pool.db.ExecContext(ctx, query,
		insert.ID,
		insert.SubjectID,
		key.MeetingCode,
		key.Day.Format(dayLayout),
		insert.StartsAt.UTC().Format(time.RFC3339),
		insert.EndsAt.UTC().Format(time.RFC3339),
		insert.FirstThird.UTC().Format(time.RFC3339),
		status,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return persistence.ClassSession{}, false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.ClassSession{}, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	session, err := s.FindByKey(ctx, key)
	if err != nil {
		return persistence.ClassSession{}, false, err
	}
	return session, affected == 1, nil
}

// FindByKey returns the session for the key, or persistence.ErrNotFound.
func (s *SessionStore) FindByKey(ctx context.Context, key persistence.SessionKey) (persistence.ClassSession, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return persistence.ClassSession{}, err
	}

	query := `
		SELECT id, subject_id, meeting_code, day, starts_at, ends_at, first_third, status, created_at, updated_at
		FROM class_sessions
		WHERE meeting_code = ? AND day = ?
	`

	var session persistence.ClassSession
	var day, startsAt, endsAt, firstThird, createdAt, updatedAt string

	err = s.pool.db.QueryRowContext(ctx, query, key.MeetingCode, key.Day.Format(dayLayout)).Scan(
		&session.ID,
		&session.SubjectID,
		&session.MeetingCode,
		&day,
		&startsAt,
		&endsAt,
		&firstThird,
		&session.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.ClassSession{}, mapError(err)
	}

	if session.Day, err = time.ParseInLocation(dayLayout, day, time.UTC); err != nil {
		return persistence.ClassSession{}, fmt.Errorf("failed to parse day: %w", err)
	}
	if session.StartsAt, err = time.Parse(time.RFC3339, startsAt); err != nil {
		return persistence.ClassSession{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}
	if session.EndsAt, err = time.Parse(time.RFC3339, endsAt); err != nil {
		return persistence.ClassSession{}, fmt.Errorf("failed to parse ends_at: %w", err)
	}
	if session.FirstThird, err = time.Parse(time.RFC3339, firstThird); err != nil {
		return persistence.ClassSession{}, fmt.Errorf("failed to parse first_third: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.ClassSession{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.ClassSession{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return session, nil
}

func normalizeKey(key persistence.SessionKey) (persistence.SessionKey, error) {
	key.MeetingCode = strings.TrimSpace(key.MeetingCode)
	if key.MeetingCode == "" {
		return persistence.SessionKey{}, persistence.ErrConstraintViolation
	}
	if key.Day.IsZero() {
		return persistence.SessionKey{}, persistence.ErrConstraintViolation
	}
	utc := key.Day.UTC()
	key.Day = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return key, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

const dayLayout = "2006-01-02"

// SubjectRepository implements persistence.SubjectRepository using SQLite.
type SubjectRepository struct {
	pool *ConnectionPool
}

// NewSubjectRepository creates a new SQLite subject repository.
func NewSubjectRepository(pool *ConnectionPool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// CreateSubject stores a new subject together with its inline recurrence rule.
func (r *SubjectRepository) CreateSubject(ctx context.Context, subject persistence.Subject) error {
	if subject.ID == "" || strings.TrimSpace(subject.MeetingLink) == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	query := `
		INSERT INTO subjects (id, name, meeting_link, weekdays, start_time, end_time, starts_on, ends_on, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		subject.ID,
		subject.Name,
		strings.TrimSpace(subject.MeetingLink),
		strings.Join(subject.Weekdays, ","),
		subject.StartTime,
		subject.EndTime,
		dayPtrString(subject.StartsOn),
		dayPtrString(subject.EndsOn),
		boolToInt(subject.Active),
		subject.CreatedAt.Format(time.RFC3339),
		subject.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetSubject retrieves a subject by id.
func (r *SubjectRepository) GetSubject(ctx context.Context, id string) (persistence.Subject, error) {
	query := `
		SELECT id, name, meeting_link, weekdays, start_time, end_time, starts_on, ends_on, active, created_at, updated_at
		FROM subjects
		WHERE id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, id)
	subject, err := scanSubject(row.Scan)
	if err != nil {
		return persistence.Subject{}, mapError(err)
	}
	return subject, nil
}

// ListSchedulable returns active subjects whose recurrence rule carries at
// least one weekday and both daily times.
func (r *SubjectRepository) ListSchedulable(ctx context.Context) ([]persistence.Subject, error) {
	query := `
		SELECT id, name, meeting_link, weekdays, start_time, end_time, starts_on, ends_on, active, created_at, updated_at
		FROM subjects
		WHERE active = 1 AND weekdays != '' AND start_time != '' AND end_time != ''
		ORDER BY id
	`
	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var subjects []persistence.Subject
	for rows.Next() {
		subject, err := scanSubject(rows.Scan)
		if err != nil {
			return nil, mapError(err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return subjects, nil
}

func scanSubject(scan func(dest ...any) error) (persistence.Subject, error) {
	var subject persistence.Subject
	var weekdays string
	var startsOn, endsOn sql.NullString
	var active int
	var createdAt, updatedAt string

	if err := scan(
		&subject.ID,
		&subject.Name,
		&subject.MeetingLink,
		&weekdays,
		&subject.StartTime,
		&subject.EndTime,
		&startsOn,
		&endsOn,
		&active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Subject{}, err
	}

	if weekdays != "" {
		subject.Weekdays = strings.Split(weekdays, ",")
	}
	subject.Active = active != 0

	var err error
	if subject.StartsOn, err = parseDayPtr(startsOn); err != nil {
		return persistence.Subject{}, fmt.Errorf("failed to parse starts_on: %w", err)
	}
	if subject.EndsOn, err = parseDayPtr(endsOn); err != nil {
		return persistence.Subject{}, fmt.Errorf("failed to parse ends_on: %w", err)
	}
	if subject.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Subject{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if subject.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Subject{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return subject, nil
}

func dayPtrString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dayLayout)
}

func parseDayPtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dayLayout, value.String, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

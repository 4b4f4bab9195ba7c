package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// AttendanceStore implements persistence.AttendanceStore using SQLite.
type AttendanceStore struct {
	pool *ConnectionPool
}

// NewAttendanceStore creates a new SQLite attendance store.
func NewAttendanceStore(pool *ConnectionPool) *AttendanceStore {
	return &AttendanceStore{pool: pool}
}

// InsertBaselineRows seeds one absent row per student for the session. Rows
// that already exist are left untouched, so re-invocation after a partial
// failure cannot duplicate or overwrite anything. Returns the number of rows
// actually inserted.
func (s *AttendanceStore) InsertBaselineRows(ctx context.Context, sessionID string, studentIDs []string) (int, error) {
	if sessionID == "" {
		return 0, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC().Format(time.RFC3339)
	inserted := 0

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO attendance (session_id, student_id, status, created_at)
			VALUES (?, ?, 'absent', ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare baseline insert: %w", err)
		}
		defer stmt.Close()

		for _, studentID := range studentIDs {
			if studentID == "" {
				continue
			}
			result, err := stmt.Exec(sessionID, studentID, now)
			if err != nil {
				return mapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// CountRows returns the number of attendance rows for a session.
func (s *AttendanceStore) CountRows(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.pool.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// EnrollmentRepository implements persistence.EnrollmentRepository using SQLite.
type EnrollmentRepository struct {
	pool *ConnectionPool
}

// NewEnrollmentRepository creates a new SQLite enrollment repository.
func NewEnrollmentRepository(pool *ConnectionPool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// AddEnrollment links a student to a subject.
func (r *EnrollmentRepository) AddEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	if enrollment.SubjectID == "" || enrollment.StudentID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO enrollments (subject_id, student_id) VALUES (?, ?)`,
		enrollment.SubjectID, enrollment.StudentID,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// ListEnrollments returns the roster for a subject.
func (r *EnrollmentRepository) ListEnrollments(ctx context.Context, subjectID string) ([]persistence.Enrollment, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT subject_id, student_id FROM enrollments WHERE subject_id = ? ORDER BY student_id`,
		subjectID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var enrollments []persistence.Enrollment
	for rows.Next() {
		var e persistence.Enrollment
		if err := rows.Scan(&e.SubjectID, &e.StudentID); err != nil {
			return nil, mapError(err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return enrollments, nil
}

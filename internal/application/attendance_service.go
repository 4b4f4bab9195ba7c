package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/session-scheduler/internal/persistence"
)

// AttendanceService seeds the baseline attendance rows for a session: one
// absent row per enrolled student, pending real check-in data.
type AttendanceService struct {
	enrollments persistence.EnrollmentRepository
	attendance  persistence.AttendanceStore
	logger      *slog.Logger
}

// NewAttendanceService wires dependencies for baseline attendance.
func NewAttendanceService(enrollments persistence.EnrollmentRepository, attendance persistence.AttendanceStore, logger *slog.Logger) *AttendanceService {
	return &AttendanceService{
		enrollments: enrollments,
		attendance:  attendance,
		logger:      defaultLogger(logger),
	}
}

// EnsureFor creates the absent rows for every student enrolled in the
// session's subject. Existing rows are left untouched, so the call is safe
// to repeat after a partial failure. An empty roster is a no-op.
func (s *AttendanceService) EnsureFor(ctx context.Context, session persistence.ClassSession) error {
	if session.ID == "" || session.SubjectID == "" {
		return persistence.ErrConstraintViolation
	}

	enrollments, err := s.enrollments.ListEnrollments(ctx, session.SubjectID)
	if err != nil {
		return fmt.Errorf("failed to list enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return nil
	}

	studentIDs := make([]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		studentIDs = append(studentIDs, enrollment.StudentID)
	}

	inserted, err := s.attendance.InsertBaselineRows(ctx, session.ID, studentIDs)
	if err != nil {
		return fmt.Errorf("failed to seed attendance rows: %w", err)
	}

	serviceLogger(ctx, s.logger, "attendance", "ensure_baseline",
		"session_id", session.ID, "subject_id", session.SubjectID).
		Info("baseline attendance seeded", "students", len(studentIDs), "inserted", inserted)
	return nil
}

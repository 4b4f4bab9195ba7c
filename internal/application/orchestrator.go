package application

import (
	"context"
	"log/slog"

	"github.com/example/session-scheduler/internal/persistence"
)

// CredentialIssuer issues the one-time check-in credential for a session.
// Called at most once per session.
type CredentialIssuer interface {
	IssueFor(ctx context.Context, session persistence.ClassSession) error
}

// AttendanceInitializer seeds baseline attendance rows for a session.
// Called at most once per session; must not depend on credential issuance
// having succeeded.
type AttendanceInitializer interface {
	EnsureFor(ctx context.Context, session persistence.ClassSession) error
}

// SideEffects fires the creation-only downstream actions after a
// materialization verdict. Both actions are best-effort: a failure is logged
// and never rolls back the persisted session or aborts later occurrences.
type SideEffects struct {
	credentials CredentialIssuer
	attendance  AttendanceInitializer
	logger      *slog.Logger
}

// NewSideEffects wires the orchestrator.
func NewSideEffects(credentials CredentialIssuer, attendance AttendanceInitializer, logger *slog.Logger) *SideEffects {
	return &SideEffects{
		credentials: credentials,
		attendance:  attendance,
		logger:      defaultLogger(logger),
	}
}

// OnMaterialized runs the side effects for a genuinely new session. A result
// with Created=false is a strict no-op.
func (s *SideEffects) OnMaterialized(ctx context.Context, result MaterializeResult) {
	if s == nil || !result.Created {
		return
	}

	session := result.Session
	logger := serviceLogger(ctx, s.logger, "side_effects", "on_materialized",
		"session_id", session.ID, "subject_id", session.SubjectID)

	if s.credentials != nil {
		if err := s.credentials.IssueFor(ctx, session); err != nil {
			logger.Error("credential issuance failed", "error", err, "kind", ErrorKind(err))
		}
	}
	if s.attendance != nil {
		if err := s.attendance.EnsureFor(ctx, session); err != nil {
			logger.Error("baseline attendance initialization failed", "error", err, "kind", ErrorKind(err))
		}
	}
}

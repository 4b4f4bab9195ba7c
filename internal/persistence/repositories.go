package persistence

import "context"

// SubjectRepository exposes read access to schedulable subjects.
type SubjectRepository interface {
	// ListSchedulable returns active subjects carrying a usable recurrence
	// rule: a non-empty weekday set and both daily times present.
	ListSchedulable(ctx context.Context) ([]Subject, error)
	CreateSubject(ctx context.Context, subject Subject) error
	GetSubject(ctx context.Context, id string) (Subject, error)
}

// SessionStore persists class sessions under the (meeting code, day) key.
type SessionStore interface {
	// FindOrCreate atomically inserts a session for the key when absent and
	// reports created=true only for the call that performed the insert. An
	// existing row is returned untouched with created=false. A concurrent
	// insert that loses the race surfaces as ErrDuplicate; callers retry.
	FindOrCreate(ctx context.Context, key SessionKey, insert SessionInsert) (ClassSession, bool, error)
	// FindByKey returns the session for the key, or ErrNotFound.
	FindByKey(ctx context.Context, key SessionKey) (ClassSession, error)
}

// EnrollmentRepository exposes the student roster per subject.
type EnrollmentRepository interface {
	ListEnrollments(ctx context.Context, subjectID string) ([]Enrollment, error)
	AddEnrollment(ctx context.Context, enrollment Enrollment) error
}

// AttendanceStore persists baseline attendance rows.
type AttendanceStore interface {
	// InsertBaselineRows seeds absent rows for the given students. Rows that
	// already exist for (session, student) are left untouched.
	InsertBaselineRows(ctx context.Context, sessionID string, studentIDs []string) (int, error)
	CountRows(ctx context.Context, sessionID string) (int, error)
}

// CredentialStore persists one-time check-in token hashes.
type CredentialStore interface {
	// SaveCredential stores the hash for a session. A second save for the
	// same session returns ErrDuplicate.
	SaveCredential(ctx context.Context, credential SessionCredential) error
	GetCredential(ctx context.Context, sessionID string) (SessionCredential, error)
}

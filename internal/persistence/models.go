package persistence

import "time"

// Subject represents a taught course whose weekly schedule drives session
// materialization. The recurrence rule is stored inline on the subject and is
// read-only to the reconciliation core.
type Subject struct {
	ID          string
	Name        string
	MeetingLink string
	Weekdays    []string
	StartTime   string
	EndTime     string
	StartsOn    *time.Time
	EndsOn      *time.Time
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionKey identifies a class session. The meeting code, not the subject id,
// is the key component because it is what check-in clients present.
type SessionKey struct {
	MeetingCode string
	Day         time.Time
}

// ClassSession is one materialized occurrence of a subject's schedule. At most
// one row exists per (meeting code, day); the constraint lives in the store.
type ClassSession struct {
	ID          string
	SubjectID   string
	MeetingCode string
	Day         time.Time
	StartsAt    time.Time
	EndsAt      time.Time
	FirstThird  time.Time
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session lifecycle statuses. Materialization only ever writes
// StatusScheduled; later transitions belong to the session-lifecycle code.
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusFinished  = "finished"
)

// SessionInsert carries the fields applied when a session row is actually
// inserted. A pre-existing row is never touched by a find-or-create call.
type SessionInsert struct {
	ID         string
	SubjectID  string
	StartsAt   time.Time
	EndsAt     time.Time
	FirstThird time.Time
	Status     string
}

// Enrollment links a student to a subject for baseline attendance seeding.
type Enrollment struct {
	SubjectID string
	StudentID string
}

// AttendanceRow is one per-student attendance record for a session, created as
// absent until real check-in data arrives.
type AttendanceRow struct {
	SessionID string
	StudentID string
	Status    string
	CreatedAt time.Time
}

// SessionCredential stores the hash of a one-time check-in token issued for a
// session. The plaintext token is never persisted.
type SessionCredential struct {
	SessionID string
	TokenHash string
	IssuedAt  time.Time
}

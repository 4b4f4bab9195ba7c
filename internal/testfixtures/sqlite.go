package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool        *sqlite.ConnectionPool
	Subjects    persistence.SubjectRepository
	Sessions    persistence.SessionStore
	Enrollments persistence.EnrollmentRepository
	Attendance  persistence.AttendanceStore
	Credentials persistence.CredentialStore

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary database file
// that is migrated automatically. Callers may optionally invoke Close, but the
// helper also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "sessions.db")

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:        pool,
		Subjects:    sqlite.NewSubjectRepository(pool),
		Sessions:    sqlite.NewSessionStore(pool),
		Enrollments: sqlite.NewEnrollmentRepository(pool),
		Attendance:  sqlite.NewAttendanceStore(pool),
		Credentials: sqlite.NewCredentialStore(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

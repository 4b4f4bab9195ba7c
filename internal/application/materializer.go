package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// SessionStore captures the persistence interactions the materializer needs.
type SessionStore interface {
	FindOrCreate(ctx context.Context, key persistence.SessionKey, insert persistence.SessionInsert) (persistence.ClassSession, bool, error)
	FindByKey(ctx context.Context, key persistence.SessionKey) (persistence.ClassSession, error)
}

const (
	// defaultConflictRetries is the number of extra attempts after the first
	// find-or-create raises a uniqueness conflict.
	defaultConflictRetries = 2
	// defaultRetryDelay is multiplied by the attempt number between retries.
	defaultRetryDelay = 10 * time.Millisecond
)

// Materializer persists candidate occurrences exactly once under the
// (meeting code, day) key. Uniqueness races between concurrent processes are
// resolved by bounded retry against the store's atomic find-or-create; the
// loser of a race reads the winner's row and reports created=false.
type Materializer struct {
	store           SessionStore
	conflictRetries int
	retryDelay      time.Duration
	sleep           func(time.Duration)
	logger          *slog.Logger
}

// NewMaterializer wires a materializer with the default retry policy.
func NewMaterializer(store SessionStore, logger *slog.Logger) *Materializer {
	return &Materializer{
		store:           store,
		conflictRetries: defaultConflictRetries,
		retryDelay:      defaultRetryDelay,
		sleep:           time.Sleep,
		logger:          defaultLogger(logger),
	}
}

// Materialize ensures a session row exists for the key and reports whether
// this call created it. Blank meeting codes and unusable days are caller
// errors, rejected before any store access. A conflict retry exhaustion that
// still cannot read the row back is a store fault for this occurrence.
func (m *Materializer) Materialize(ctx context.Context, meetingCode string, day time.Time, insert persistence.SessionInsert) (MaterializeResult, error) {
	code := strings.TrimSpace(meetingCode)
	if code == "" {
		return MaterializeResult{}, ErrEmptyMeetingCode
	}
	if day.IsZero() {
		return MaterializeResult{}, ErrInvalidDay
	}

	key := persistence.SessionKey{MeetingCode: code, Day: dayStart(day)}
	logger := serviceLogger(ctx, m.logger, "materializer", "materialize",
		"meeting_code", key.MeetingCode, "day", key.Day.Format("2006-01-02"))

	attempts := 0
	var lastErr error
	for attempt := 0; attempt <= m.conflictRetries; attempt++ {
		if attempt > 0 {
			m.sleep(m.retryDelay * time.Duration(attempt))
		}
		attempts++

		session, created, err := m.store.FindOrCreate(ctx, key, insert)
		if err == nil {
			return MaterializeResult{Session: session, Created: created, Attempts: attempts}, nil
		}
		if !errors.Is(err, persistence.ErrDuplicate) {
			return MaterializeResult{}, fmt.Errorf("find-or-create failed: %w", err)
		}

		lastErr = err
		logger.Debug("uniqueness conflict, retrying", "attempt", attempts)
	}

	// Conflicts exhausted; by now the winning row must be readable.
	session, err := m.store.FindByKey(ctx, key)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("%w: row unreadable after %d attempts (last conflict: %v): %v",
			ErrStoreFault, attempts, lastErr, err)
	}
	return MaterializeResult{Session: session, Created: false, Attempts: attempts}, nil
}

func dayStart(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

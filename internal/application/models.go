package application

import (
	"time"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/recurrence"
)

// RunSummary records the outcome of one reconciliation pass. It is held as
// the loop's last-run state for observability and overwritten each pass.
type RunSummary struct {
	WindowStart        time.Time
	WindowEnd          time.Time
	SubjectsProcessed  int
	SubjectsSkipped    int
	OccurrencesEnsured int
	OccurrencesCreated int
	CompletedAt        time.Time
}

// MaterializeResult reports the definitive verdict of one materialization.
// Created is true only when the call performed the actual insert; it is the
// sole signal that gates creation side effects.
type MaterializeResult struct {
	Session  persistence.ClassSession
	Created  bool
	Attempts int
}

// Preview is the read-only enumeration result for the calendar-preview UI.
// TotalCount is the number of occurrences before the limit was applied.
type Preview struct {
	WindowStart time.Time
	WindowEnd   time.Time
	TotalCount  int
	Occurrences []recurrence.Occurrence
}

// LoopStatus reports the reconciliation loop's current state on demand.
type LoopStatus struct {
	Running bool
	LastRun *RunSummary
}

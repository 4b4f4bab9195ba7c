package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/recurrence"
)

// SubjectSource exposes the schedulable subjects a pass iterates over.
type SubjectSource interface {
	ListSchedulable(ctx context.Context) ([]persistence.Subject, error)
}

// Loop timing defaults.
const (
	DefaultPeriod    = 5 * time.Minute
	DefaultLookahead = 60 * time.Minute
)

// Reconciler drives materialization across a rolling lookahead window. One
// pass runs at a time per instance; the single-flight guard is in-process
// only, and cross-process races are the materializer's job to absorb.
type Reconciler struct {
	subjects     SubjectSource
	resolver     CodeResolver
	materializer *Materializer
	effects      *SideEffects
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger

	mu        sync.Mutex
	running   bool
	lastRun   *RunSummary
	cron      *cron.Cron
	lookahead time.Duration
	loopCtx   context.Context
}

// NewReconciler wires dependencies for the reconciliation loop.
func NewReconciler(subjects SubjectSource, resolver CodeResolver, materializer *Materializer, effects *SideEffects, idGenerator func() string, now func() time.Time, logger *slog.Logger) *Reconciler {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		subjects:     subjects,
		resolver:     resolver,
		materializer: materializer,
		effects:      effects,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// Reconcile runs one pass over [windowStart, windowEnd]. A window whose end
// does not come after its start is a caller error, rejected before any store
// access. A pass requested while another is running returns ErrRunInProgress.
//
// Per-subject and per-occurrence failures are logged and isolated; the
// returned summary still counts everything that succeeded.
func (r *Reconciler) Reconcile(ctx context.Context, windowStart, windowEnd time.Time) (RunSummary, error) {
	if !windowEnd.After(windowStart) {
		return RunSummary{}, ErrInvalidWindow
	}

	if !r.tryBegin() {
		return RunSummary{}, ErrRunInProgress
	}
	defer r.finish()

	logger := serviceLogger(ctx, r.logger, "reconciler", "reconcile",
		"window_start", windowStart, "window_end", windowEnd)

	subjects, err := r.subjects.ListSchedulable(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to list schedulable subjects: %w", err)
	}

	summary := RunSummary{WindowStart: windowStart, WindowEnd: windowEnd}

	for _, subject := range subjects {
		code := ""
		if r.resolver != nil {
			code = r.resolver.ResolveCode(subject.MeetingLink)
		}
		if code == "" {
			summary.SubjectsSkipped++
			logger.Warn("meeting link unresolvable, subject skipped",
				"subject_id", subject.ID, "meeting_link", subject.MeetingLink)
			continue
		}

		rule := recurrence.Rule{
			SubjectID: subject.ID,
			Weekdays:  subject.Weekdays,
			StartTime: subject.StartTime,
			EndTime:   subject.EndTime,
			StartsOn:  subject.StartsOn,
			EndsOn:    subject.EndsOn,
		}

		for _, occ := range recurrence.Expand(rule, windowStart, windowEnd) {
			result, err := r.materializer.Materialize(ctx, code, occ.Day, persistence.SessionInsert{
				ID:         r.idGenerator(),
				SubjectID:  subject.ID,
				StartsAt:   occ.Start,
				EndsAt:     occ.End,
				FirstThird: occ.FirstThird,
				Status:     persistence.StatusScheduled,
			})
			if err != nil {
				logger.Error("occurrence materialization failed",
					"subject_id", subject.ID, "day", occ.Day.Format("2006-01-02"),
					"error", err, "kind", ErrorKind(err))
				continue
			}

			summary.OccurrencesEnsured++
			if result.Created {
				summary.OccurrencesCreated++
			}
			// Side effects only after a definitive created verdict.
			r.effects.OnMaterialized(ctx, result)
		}
		summary.SubjectsProcessed++
	}

	summary.CompletedAt = r.now()
	r.publish(summary)

	logger.Info("reconciliation pass complete",
		"subjects_processed", summary.SubjectsProcessed,
		"subjects_skipped", summary.SubjectsSkipped,
		"occurrences_ensured", summary.OccurrencesEnsured,
		"occurrences_created", summary.OccurrencesCreated)
	return summary, nil
}

// Start launches the periodic loop: an immediate first pass, then one pass
// every period over [now, now+lookahead]. Zero durations fall back to the
// defaults.
func (r *Reconciler) Start(ctx context.Context, period, lookahead time.Duration) error {
	if period <= 0 {
		period = DefaultPeriod
	}
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}

	r.mu.Lock()
	if r.cron != nil {
		r.mu.Unlock()
		return ErrLoopAlreadyStarted
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.lookahead = lookahead
	r.loopCtx = ctx
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", period), r.tick); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to schedule loop: %w", err)
	}
	r.cron = c
	r.mu.Unlock()

	// First tick fires immediately, not after one period.
	go r.tick()
	c.Start()

	r.logger.Info("reconciliation loop started", "period", period, "lookahead", lookahead)
	return nil
}

// Stop halts the periodic loop. A pass already in flight runs to completion.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c != nil {
		c.Stop()
		r.logger.Info("reconciliation loop stopped")
	}
}

// Status reports the running state and the last published run summary.
func (r *Reconciler) Status() LoopStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := LoopStatus{Running: r.running}
	if r.lastRun != nil {
		copied := *r.lastRun
		status.LastRun = &copied
	}
	return status
}

// tick runs one timer-driven pass. A tick that fires while a pass is still
// running is a no-op, not queued; any other failure is logged and the loop
// waits for the next tick.
func (r *Reconciler) tick() {
	r.mu.Lock()
	ctx := r.loopCtx
	lookahead := r.lookahead
	r.mu.Unlock()
	if ctx == nil {
		return
	}

	start := r.now()
	_, err := r.Reconcile(ctx, start, start.Add(lookahead))
	switch {
	case errors.Is(err, ErrRunInProgress):
		r.logger.Debug("previous pass still running, tick skipped")
	case err != nil:
		r.logger.Error("reconciliation pass failed", "error", err, "kind", ErrorKind(err))
	}
}

func (r *Reconciler) tryBegin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Reconciler) finish() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Reconciler) publish(summary RunSummary) {
	r.mu.Lock()
	r.lastRun = &summary
	r.mu.Unlock()
}

package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

type subjectSourceStub struct {
	mu       sync.Mutex
	subjects []persistence.Subject
	err      error
	calls    int
	entered  chan struct{}
	release  chan struct{}
}

func (s *subjectSourceStub) ListSchedulable(ctx context.Context) ([]persistence.Subject, error) {
	s.mu.Lock()
	s.calls++
	entered, release := s.entered, s.release
	s.mu.Unlock()

	if entered != nil {
		close(entered)
		s.mu.Lock()
		s.entered = nil
		s.mu.Unlock()
	}
	if release != nil {
		<-release
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]persistence.Subject, len(s.subjects))
	copy(out, s.subjects)
	return out, nil
}

func (s *subjectSourceStub) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testSubject(id, link string, weekdays ...string) persistence.Subject {
	if len(weekdays) == 0 {
		weekdays = []string{"Monday", "Wednesday"}
	}
	return persistence.Subject{
		ID:          id,
		Name:        "subject " + id,
		MeetingLink: link,
		Weekdays:    weekdays,
		StartTime:   "08:00",
		EndTime:     "09:00",
		Active:      true,
	}
}

func newTestReconciler(subjects SubjectSource, store SessionStore, issuer CredentialIssuer, initializer AttendanceInitializer) *Reconciler {
	materializer := NewMaterializer(store, nil)
	noSleep(materializer)

	counter := 0
	var mu sync.Mutex
	idGen := func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return "session-" + string(rune('0'+counter%10)) + string(rune('a'+counter/10))
	}
	now := func() time.Time { return time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC) }

	return NewReconciler(subjects, NewLinkResolver(), materializer,
		NewSideEffects(issuer, initializer, nil), idGen, now, nil)
}

func TestReconciler_InvalidWindowIsRejectedBeforeStoreAccess(t *testing.T) {
	t.Parallel()

	source := &subjectSourceStub{}
	store := newMemSessionStore()
	r := newTestReconciler(source, store, &issuerMock{}, &initializerMock{})

	at := time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC)

	if _, err := r.Reconcile(context.Background(), at, at); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("equal bounds: got %v, want ErrInvalidWindow", err)
	}
	if _, err := r.Reconcile(context.Background(), at, at.Add(-time.Hour)); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("reversed bounds: got %v, want ErrInvalidWindow", err)
	}

	if source.listCalls() != 0 {
		t.Fatalf("subject repository touched %d times on caller error", source.listCalls())
	}
	if store.calls() != 0 {
		t.Fatalf("session store touched %d times on caller error", store.calls())
	}
}

func TestReconciler_PassMaterializesAndFiresSideEffects(t *testing.T) {
	t.Parallel()

	source := &subjectSourceStub{subjects: []persistence.Subject{
		testSubject("subject-1", "https://meet.example.com/room-1"),
	}}
	store := newMemSessionStore()
	issuer := &issuerMock{}
	initializer := &initializerMock{}
	r := newTestReconciler(source, store, issuer, initializer)

	// Monday through the following Wednesday: 2 Mondays + 2 Wednesdays.
	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 9).Add(23 * time.Hour)

	summary, err := r.Reconcile(context.Background(), windowStart, windowEnd)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.SubjectsProcessed != 1 || summary.SubjectsSkipped != 0 {
		t.Fatalf("unexpected subject counts: %+v", summary)
	}
	if summary.OccurrencesEnsured != 4 || summary.OccurrencesCreated != 4 {
		t.Fatalf("unexpected occurrence counts: %+v", summary)
	}
	if len(issuer.calls) != 4 || len(initializer.calls) != 4 {
		t.Fatalf("side effects fired %d/%d times, want 4/4", len(issuer.calls), len(initializer.calls))
	}

	// A second pass over the same window ensures without creating and fires
	// nothing new.
	summary, err = r.Reconcile(context.Background(), windowStart, windowEnd)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if summary.OccurrencesEnsured != 4 || summary.OccurrencesCreated != 0 {
		t.Fatalf("second pass counts: %+v", summary)
	}
	if len(issuer.calls) != 4 || len(initializer.calls) != 4 {
		t.Fatalf("side effects re-fired for pre-existing sessions: %d/%d", len(issuer.calls), len(initializer.calls))
	}
}

func TestReconciler_UnresolvableLinkCountsAsSkipped(t *testing.T) {
	t.Parallel()

	source := &subjectSourceStub{subjects: []persistence.Subject{
		testSubject("subject-1", "not a link at all"),
		testSubject("subject-2", "room-2"),
	}}
	store := newMemSessionStore()
	r := newTestReconciler(source, store, &issuerMock{}, &initializerMock{})

	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	summary, err := r.Reconcile(context.Background(), windowStart, windowStart.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.SubjectsSkipped != 1 {
		t.Fatalf("skipped = %d, want 1", summary.SubjectsSkipped)
	}
	if summary.SubjectsProcessed != 1 {
		t.Fatalf("processed = %d, want 1", summary.SubjectsProcessed)
	}
	for key := range store.sessions {
		if key[:6] == "not a " {
			t.Fatalf("skipped subject reached the store: %q", key)
		}
	}
}

func TestReconciler_OccurrenceFailureDoesNotAbortPass(t *testing.T) {
	t.Parallel()

	source := &subjectSourceStub{subjects: []persistence.Subject{
		testSubject("subject-1", "room-1"),
		testSubject("subject-2", "room-2"),
	}}
	store := newMemSessionStore()
	// Fail the very first insert with a non-conflict error; the pass must
	// carry on with everything else.
	store.findByKeyErr = nil
	failing := &firstCallFailsStore{inner: store}
	r := newTestReconciler(source, failing, &issuerMock{}, &initializerMock{})

	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	summary, err := r.Reconcile(context.Background(), windowStart, windowStart.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	// 2 subjects x 2 occurrences (Mon+Wed within 8 days) minus the one
	// injected failure.
	if summary.OccurrencesEnsured != 3 {
		t.Fatalf("ensured = %d, want 3", summary.OccurrencesEnsured)
	}
	if summary.SubjectsProcessed != 2 {
		t.Fatalf("processed = %d, want 2", summary.SubjectsProcessed)
	}
}

type firstCallFailsStore struct {
	mu     sync.Mutex
	inner  *memSessionStore
	failed bool
}

func (s *firstCallFailsStore) FindOrCreate(ctx context.Context, key persistence.SessionKey, insert persistence.SessionInsert) (persistence.ClassSession, bool, error) {
	s.mu.Lock()
	if !s.failed {
		s.failed = true
		s.mu.Unlock()
		return persistence.ClassSession{}, false, errors.New("transient outage")
	}
	s.mu.Unlock()
	return s.inner.FindOrCreate(ctx, key, insert)
}

func (s *firstCallFailsStore) FindByKey(ctx context.Context, key persistence.SessionKey) (persistence.ClassSession, error) {
	return s.inner.FindByKey(ctx, key)
}

func TestReconciler_SingleFlight(t *testing.T) {
	t.Parallel()

	source := &subjectSourceStub{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := newMemSessionStore()
	r := newTestReconciler(source, store, &issuerMock{}, &initializerMock{})

	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(context.Background(), windowStart, windowEnd)
		done <- err
	}()

	<-source.entered
	if !r.Status().Running {
		t.Fatal("status should report running while a pass is in flight")
	}

	if _, err := r.Reconcile(context.Background(), windowStart, windowEnd); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("overlapping pass: got %v, want ErrRunInProgress", err)
	}

	close(source.release)
	if err := <-done; err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	if r.Status().Running {
		t.Fatal("status should report idle after the pass")
	}
}

func TestReconciler_PublishesRunSummary(t *testing.T) {
	t.Parallel()

	source := &subjectSourceStub{subjects: []persistence.Subject{
		testSubject("subject-1", "room-1"),
	}}
	r := newTestReconciler(source, newMemSessionStore(), &issuerMock{}, &initializerMock{})

	if r.Status().LastRun != nil {
		t.Fatal("fresh reconciler should have no last run")
	}

	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	if _, err := r.Reconcile(context.Background(), windowStart, windowStart.Add(time.Hour)); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	status := r.Status()
	if status.LastRun == nil {
		t.Fatal("last run not published")
	}
	if !status.LastRun.WindowStart.Equal(windowStart) {
		t.Fatalf("published window start = %v", status.LastRun.WindowStart)
	}
	if status.LastRun.CompletedAt.IsZero() {
		t.Fatal("completed timestamp missing")
	}
}

func TestReconciler_IndependentInstances(t *testing.T) {
	t.Parallel()

	// Two loops must not share running state.
	blocked := &subjectSourceStub{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	first := newTestReconciler(blocked, newMemSessionStore(), &issuerMock{}, &initializerMock{})
	second := newTestReconciler(&subjectSourceStub{}, newMemSessionStore(), &issuerMock{}, &initializerMock{})

	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := first.Reconcile(context.Background(), windowStart, windowEnd)
		done <- err
	}()
	<-blocked.entered

	if _, err := second.Reconcile(context.Background(), windowStart, windowEnd); err != nil {
		t.Fatalf("second instance blocked by first: %v", err)
	}

	close(blocked.release)
	if err := <-done; err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
}

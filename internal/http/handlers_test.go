package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/application"
)

type reconcileServiceStub struct {
	summary     application.RunSummary
	err         error
	windowStart time.Time
	windowEnd   time.Time
	calls       int
}

func (s *reconcileServiceStub) Reconcile(ctx context.Context, windowStart, windowEnd time.Time) (application.RunSummary, error) {
	s.calls++
	s.windowStart = windowStart
	s.windowEnd = windowEnd
	if s.err != nil {
		return application.RunSummary{}, s.err
	}
	return s.summary, nil
}

type previewServiceStub struct {
	preview application.Preview
	err     error
	params  application.PreviewParams
}

func (s *previewServiceStub) Enumerate(ctx context.Context, params application.PreviewParams) (application.Preview, error) {
	s.params = params
	if s.err != nil {
		return application.Preview{}, s.err
	}
	return s.preview, nil
}

type loopControlStub struct {
	status    application.LoopStatus
	startErr  error
	started   bool
	stopped   bool
	period    time.Duration
	lookahead time.Duration
}

func (s *loopControlStub) Start(ctx context.Context, period, lookahead time.Duration) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	s.period = period
	s.lookahead = lookahead
	return nil
}

func (s *loopControlStub) Stop() { s.stopped = true }

func (s *loopControlStub) Status() application.LoopStatus { return s.status }

func newRouterForTest(reconcile *reconcileServiceStub, preview *previewServiceStub, loop *loopControlStub) http.Handler {
	now := func() time.Time { return time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC) }
	return NewRouter(RouterConfig{
		Reconcile: NewReconcileHandler(reconcile, now, time.Hour, nil),
		Preview:   NewPreviewHandler(preview, nil),
		Loop:      NewLoopHandler(loop, nil),
	})
}

func TestReconcileHandler_DefaultsWindowFromClock(t *testing.T) {
	t.Parallel()

	service := &reconcileServiceStub{summary: application.RunSummary{OccurrencesCreated: 2}}
	router := newRouterForTest(service, &previewServiceStub{}, &loopControlStub{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	wantStart := time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC)
	if !service.windowStart.Equal(wantStart) || !service.windowEnd.Equal(wantStart.Add(time.Hour)) {
		t.Fatalf("window = [%v, %v]", service.windowStart, service.windowEnd)
	}

	var response runSummaryResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.OccurrencesCreated != 2 {
		t.Fatalf("occurrences_created = %d", response.OccurrencesCreated)
	}
}

func TestReconcileHandler_ExplicitWindow(t *testing.T) {
	t.Parallel()

	service := &reconcileServiceStub{}
	router := newRouterForTest(service, &previewServiceStub{}, &loopControlStub{})

	body := `{"window_start":"2024-03-04T08:00:00Z","window_end":"2024-03-04T10:00:00Z"}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(body)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if service.windowStart.Hour() != 8 || service.windowEnd.Hour() != 10 {
		t.Fatalf("window = [%v, %v]", service.windowStart, service.windowEnd)
	}
}

func TestReconcileHandler_CallerErrorMapsToBadRequest(t *testing.T) {
	t.Parallel()

	service := &reconcileServiceStub{err: application.ErrInvalidWindow}
	router := newRouterForTest(service, &previewServiceStub{}, &loopControlStub{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestReconcileHandler_RunInProgressMapsToConflict(t *testing.T) {
	t.Parallel()

	service := &reconcileServiceStub{err: application.ErrRunInProgress}
	router := newRouterForTest(service, &previewServiceStub{}, &loopControlStub{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))

	if recorder.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", recorder.Code)
	}
}

func TestPreviewHandler_ParsesQuery(t *testing.T) {
	t.Parallel()

	service := &previewServiceStub{preview: application.Preview{TotalCount: 7}}
	router := newRouterForTest(&reconcileServiceStub{}, service, &loopControlStub{})

	recorder := httptest.NewRecorder()
	target := "/api/preview?window_start=2024-03-04T07:00:00Z&window_end=2024-03-04T10:00:00Z&limit=5"
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if service.params.Limit != 5 {
		t.Fatalf("limit = %d", service.params.Limit)
	}
	if service.params.WindowStart.Hour() != 7 {
		t.Fatalf("window start = %v", service.params.WindowStart)
	}

	var response previewResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.TotalCount != 7 {
		t.Fatalf("total_count = %d", response.TotalCount)
	}
}

func TestPreviewHandler_RejectsBadQuery(t *testing.T) {
	t.Parallel()

	router := newRouterForTest(&reconcileServiceStub{}, &previewServiceStub{}, &loopControlStub{})

	for _, target := range []string{
		"/api/preview?window_start=yesterday",
		"/api/preview?limit=-3",
		"/api/preview?limit=many",
	} {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, recorder.Code)
		}
	}
}

func TestLoopHandler_StartStopStatus(t *testing.T) {
	t.Parallel()

	control := &loopControlStub{}
	router := newRouterForTest(&reconcileServiceStub{}, &previewServiceStub{}, control)

	body := `{"period":"2m","lookahead":"30m"}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/loop/start", strings.NewReader(body)))
	if recorder.Code != http.StatusOK {
		t.Fatalf("start status = %d", recorder.Code)
	}
	if !control.started || control.period != 2*time.Minute || control.lookahead != 30*time.Minute {
		t.Fatalf("start not forwarded: %+v", control)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/loop/stop", nil))
	if recorder.Code != http.StatusOK || !control.stopped {
		t.Fatalf("stop not forwarded, status = %d", recorder.Code)
	}

	completed := time.Date(2024, time.March, 4, 7, 5, 0, 0, time.UTC)
	control.status = application.LoopStatus{
		Running: true,
		LastRun: &application.RunSummary{OccurrencesEnsured: 9, CompletedAt: completed},
	}
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/loop", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status status = %d", recorder.Code)
	}
	var response loopStatusResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Running || response.LastRun == nil || response.LastRun.OccurrencesEnsured != 9 {
		t.Fatalf("unexpected status payload: %+v", response)
	}
}

func TestLoopHandler_InvalidDurations(t *testing.T) {
	t.Parallel()

	router := newRouterForTest(&reconcileServiceStub{}, &previewServiceStub{}, &loopControlStub{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/loop/start", strings.NewReader(`{"period":"soon"}`)))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestRouter_MethodGuards(t *testing.T) {
	t.Parallel()

	router := newRouterForTest(&reconcileServiceStub{}, &previewServiceStub{}, &loopControlStub{})

	cases := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/reconcile"},
		{http.MethodPost, "/api/preview"},
		{http.MethodDelete, "/api/loop"},
		{http.MethodGet, "/api/loop/start"},
	}
	for _, tc := range cases {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.target, nil))
		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: status = %d, want 405", tc.method, tc.target, recorder.Code)
		}
	}
}

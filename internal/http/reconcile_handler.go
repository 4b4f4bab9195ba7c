package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/session-scheduler/internal/application"
)

// ReconcileService triggers a reconciliation pass on demand.
type ReconcileService interface {
	Reconcile(ctx context.Context, windowStart, windowEnd time.Time) (application.RunSummary, error)
}

// ReconcileHandler exposes the on-demand reconciliation trigger.
type ReconcileHandler struct {
	service   ReconcileService
	now       func() time.Time
	lookahead time.Duration
	responder responder
	logger    *slog.Logger
}

// NewReconcileHandler wires the reconcile endpoint. The lookahead is used to
// default the window end when the caller omits it.
func NewReconcileHandler(service ReconcileService, now func() time.Time, lookahead time.Duration, logger *slog.Logger) *ReconcileHandler {
	if now == nil {
		now = time.Now
	}
	if lookahead <= 0 {
		lookahead = application.DefaultLookahead
	}
	return &ReconcileHandler{
		service:   service,
		now:       now,
		lookahead: lookahead,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

type reconcileRequest struct {
	WindowStart *time.Time `json:"window_start"`
	WindowEnd   *time.Time `json:"window_end"`
}

type runSummaryResponse struct {
	WindowStart        time.Time `json:"window_start"`
	WindowEnd          time.Time `json:"window_end"`
	SubjectsProcessed  int       `json:"subjects_processed"`
	SubjectsSkipped    int       `json:"subjects_skipped"`
	OccurrencesEnsured int       `json:"occurrences_ensured"`
	OccurrencesCreated int       `json:"occurrences_created"`
	CompletedAt        time.Time `json:"completed_at"`
}

func summaryResponse(summary application.RunSummary) runSummaryResponse {
	return runSummaryResponse{
		WindowStart:        summary.WindowStart,
		WindowEnd:          summary.WindowEnd,
		SubjectsProcessed:  summary.SubjectsProcessed,
		SubjectsSkipped:    summary.SubjectsSkipped,
		OccurrencesEnsured: summary.OccurrencesEnsured,
		OccurrencesCreated: summary.OccurrencesCreated,
		CompletedAt:        summary.CompletedAt,
	}
}

// Trigger handles POST /api/reconcile.
func (h *ReconcileHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	windowStart := h.now()
	if req.WindowStart != nil {
		windowStart = *req.WindowStart
	}
	windowEnd := windowStart.Add(h.lookahead)
	if req.WindowEnd != nil {
		windowEnd = *req.WindowEnd
	}

	summary, err := h.service.Reconcile(ctx, windowStart, windowEnd)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	handlerLogger(ctx, h.logger, "reconcile", "trigger").Info("on-demand pass complete",
		"occurrences_created", summary.OccurrencesCreated)
	h.responder.writeJSON(ctx, w, http.StatusOK, summaryResponse(summary))
}

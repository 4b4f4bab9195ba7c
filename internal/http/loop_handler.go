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

// LoopControl starts and stops the periodic reconciliation loop.
type LoopControl interface {
	Start(ctx context.Context, period, lookahead time.Duration) error
	Stop()
	Status() application.LoopStatus
}

// LoopHandler exposes loop control and observability.
type LoopHandler struct {
	control   LoopControl
	responder responder
	logger    *slog.Logger
}

// NewLoopHandler wires the loop control endpoints.
func NewLoopHandler(control LoopControl, logger *slog.Logger) *LoopHandler {
	return &LoopHandler{
		control:   control,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

type loopStartRequest struct {
	Period    string `json:"period"`
	Lookahead string `json:"lookahead"`
}

type loopStatusResponse struct {
	Running bool                `json:"running"`
	LastRun *runSummaryResponse `json:"last_run,omitempty"`
}

func (h *LoopHandler) statusResponse() loopStatusResponse {
	status := h.control.Status()
	response := loopStatusResponse{Running: status.Running}
	if status.LastRun != nil {
		summary := summaryResponse(*status.LastRun)
		response.LastRun = &summary
	}
	return response
}

// Status handles GET /api/loop.
func (h *LoopHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.statusResponse())
}

// Start handles POST /api/loop/start.
func (h *LoopHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loopStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	period, err := parseOptionalDuration(req.Period)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errors.New("invalid period"))
		return
	}
	lookahead, err := parseOptionalDuration(req.Lookahead)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errors.New("invalid lookahead"))
		return
	}

	if err := h.control.Start(context.WithoutCancel(ctx), period, lookahead); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	handlerLogger(ctx, h.logger, "loop", "start").Info("loop started")
	h.responder.writeJSON(ctx, w, http.StatusOK, h.statusResponse())
}

// StopLoop handles POST /api/loop/stop.
func (h *LoopHandler) StopLoop(w http.ResponseWriter, r *http.Request) {
	h.control.Stop()
	handlerLogger(r.Context(), h.logger, "loop", "stop").Info("loop stopped")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.statusResponse())
}

func parseOptionalDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid duration")
	}
	return parsed, nil
}

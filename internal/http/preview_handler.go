package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/session-scheduler/internal/application"
)

// PreviewService enumerates candidate occurrences without persisting them.
type PreviewService interface {
	Enumerate(ctx context.Context, params application.PreviewParams) (application.Preview, error)
}

// PreviewHandler exposes the read-only calendar preview.
type PreviewHandler struct {
	service   PreviewService
	responder responder
	logger    *slog.Logger
}

// NewPreviewHandler wires the preview endpoint.
func NewPreviewHandler(service PreviewService, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

type occurrenceResponse struct {
	SubjectID  string    `json:"subject_id"`
	Day        string    `json:"day"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	FirstThird time.Time `json:"first_third"`
}

type previewResponse struct {
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
	TotalCount  int                  `json:"total_count"`
	Occurrences []occurrenceResponse `json:"occurrences"`
}

// Enumerate handles GET /api/preview.
func (h *PreviewHandler) Enumerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := previewParamsFromQuery(r)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	preview, err := h.service.Enumerate(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	response := previewResponse{
		WindowStart: preview.WindowStart,
		WindowEnd:   preview.WindowEnd,
		TotalCount:  preview.TotalCount,
		Occurrences: make([]occurrenceResponse, 0, len(preview.Occurrences)),
	}
	for _, occ := range preview.Occurrences {
		response.Occurrences = append(response.Occurrences, occurrenceResponse{
			SubjectID:  occ.SubjectID,
			Day:        occ.Day.Format("2006-01-02"),
			StartsAt:   occ.Start,
			EndsAt:     occ.End,
			FirstThird: occ.FirstThird,
		})
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, response)
}

func previewParamsFromQuery(r *http.Request) (application.PreviewParams, error) {
	query := r.URL.Query()
	params := application.PreviewParams{}

	if value := query.Get("window_start"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return application.PreviewParams{}, fmt.Errorf("invalid window_start: %v", err)
		}
		params.WindowStart = parsed
	}
	if value := query.Get("window_end"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return application.PreviewParams{}, fmt.Errorf("invalid window_end: %v", err)
		}
		params.WindowEnd = parsed
	}
	if value := query.Get("limit"); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			return application.PreviewParams{}, fmt.Errorf("invalid limit: %q", value)
		}
		params.Limit = limit
	}

	return params, nil
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/session-scheduler/internal/recurrence"
)

// Preview defaults.
const (
	DefaultPreviewWindow = 180 * time.Minute
	DefaultPreviewLimit  = 200
)

// PreviewParams carries the optional window and result cap for a preview
// query. Zero values fall back to the defaults.
type PreviewParams struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Limit       int
}

// PreviewService enumerates candidate occurrences without persisting them.
// It is a pure read path: it never touches the materializer or the side
// effect orchestrator.
type PreviewService struct {
	subjects SubjectSource
	now      func() time.Time
	logger   *slog.Logger
}

// NewPreviewService wires dependencies for the preview query.
func NewPreviewService(subjects SubjectSource, now func() time.Time, logger *slog.Logger) *PreviewService {
	if now == nil {
		now = time.Now
	}
	return &PreviewService{
		subjects: subjects,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// Enumerate expands every schedulable subject over the window and returns the
// occurrences sorted ascending by start time, truncated to the cap, together
// with the total count before truncation.
func (s *PreviewService) Enumerate(ctx context.Context, params PreviewParams) (Preview, error) {
	windowStart := params.WindowStart
	if windowStart.IsZero() {
		windowStart = s.now()
	}
	windowEnd := params.WindowEnd
	if windowEnd.IsZero() {
		windowEnd = windowStart.Add(DefaultPreviewWindow)
	}
	if !windowEnd.After(windowStart) {
		return Preview{}, ErrInvalidWindow
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	subjects, err := s.subjects.ListSchedulable(ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to list schedulable subjects: %w", err)
	}

	occurrences := make([]recurrence.Occurrence, 0)
	for _, subject := range subjects {
		rule := recurrence.Rule{
			SubjectID: subject.ID,
			Weekdays:  subject.Weekdays,
			StartTime: subject.StartTime,
			EndTime:   subject.EndTime,
			StartsOn:  subject.StartsOn,
			EndsOn:    subject.EndsOn,
		}
		occurrences = append(occurrences, recurrence.Expand(rule, windowStart, windowEnd)...)
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		if !occurrences[i].Start.Equal(occurrences[j].Start) {
			return occurrences[i].Start.Before(occurrences[j].Start)
		}
		return occurrences[i].SubjectID < occurrences[j].SubjectID
	})

	total := len(occurrences)
	if total > limit {
		occurrences = occurrences[:limit]
	}

	return Preview{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		TotalCount:  total,
		Occurrences: occurrences,
	}, nil
}

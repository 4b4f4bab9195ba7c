package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

var (
	subjectCounter    uint64
	enrollmentCounter uint64
)

// Reference time falls on a Monday so weekday-based fixtures line up.
var referenceTime = time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// SubjectOption configures a generated subject fixture.
type SubjectOption func(*persistence.Subject)

// NewSubjectFixture returns a deterministic, schedulable subject with optional
// overrides. Each invocation yields a distinct id and meeting link.
func NewSubjectFixture(opts ...SubjectOption) persistence.Subject {
	idx := atomic.AddUint64(&subjectCounter, 1)
	id := fmt.Sprintf("subject-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	subject := persistence.Subject{
		ID:          id,
		Name:        fmt.Sprintf("Subject %03d", idx),
		MeetingLink: fmt.Sprintf("https://meet.example.com/%s", id),
		Weekdays:    []string{"monday", "wednesday"},
		StartTime:   "08:00",
		EndTime:     "09:00",
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&subject)
	}
	return subject
}

// WithSubjectID overrides the generated subject id.
func WithSubjectID(id string) SubjectOption {
	return func(s *persistence.Subject) {
		s.ID = id
	}
}

// WithMeetingLink overrides the generated meeting link.
func WithMeetingLink(link string) SubjectOption {
	return func(s *persistence.Subject) {
		s.MeetingLink = link
	}
}

// WithWeekdays overrides the scheduled weekdays.
func WithWeekdays(days ...string) SubjectOption {
	return func(s *persistence.Subject) {
		s.Weekdays = days
	}
}

// WithTimes overrides the start and end times of day.
func WithTimes(start, end string) SubjectOption {
	return func(s *persistence.Subject) {
		s.StartTime = start
		s.EndTime = end
	}
}

// WithTermBounds sets the inclusive scheduling date range.
func WithTermBounds(startsOn, endsOn time.Time) SubjectOption {
	return func(s *persistence.Subject) {
		s.StartsOn = &startsOn
		s.EndsOn = &endsOn
	}
}

// WithInactive marks the subject as not schedulable.
func WithInactive() SubjectOption {
	return func(s *persistence.Subject) {
		s.Active = false
	}
}

// NewEnrollmentFixture returns an enrollment for the given subject with a
// deterministic student id.
func NewEnrollmentFixture(subjectID string) persistence.Enrollment {
	idx := atomic.AddUint64(&enrollmentCounter, 1)
	return persistence.Enrollment{
		SubjectID: subjectID,
		StudentID: fmt.Sprintf("student-%03d", idx),
	}
}

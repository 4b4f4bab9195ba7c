package recurrence

import (
	"strings"
	"time"
)

// Rule describes the weekly recurrence configuration attached to a subject.
// Weekday names are matched case-insensitively; StartTime and EndTime use the
// 24h "15:04" layout. StartsOn and EndsOn, when present, bound the rule to an
// inclusive calendar-date range.
type Rule struct {
	SubjectID string
	Weekdays  []string
	StartTime string
	EndTime   string
	StartsOn  *time.Time
	EndsOn    *time.Time
}

// Occurrence is one concrete candidate produced by expanding a rule. It is an
// ephemeral value; persistence happens elsewhere under the session store's
// uniqueness key.
type Occurrence struct {
	SubjectID  string
	Day        time.Time
	Start      time.Time
	End        time.Time
	FirstThird time.Time
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Expand enumerates every calendar day in [windowStart, windowEnd] and keeps
// the days selected by the rule whose session interval intersects the window.
//
// Semantics:
//   - A rule without weekdays or without both daily times is not schedulable
//     and yields no occurrences; malformed rules are never an error.
//   - Days are normalized to UTC midnight for iteration and bound checks, but
//     window intersection is tested against the caller's original instants.
//   - Occurrences are produced in ascending day order.
func Expand(rule Rule, windowStart, windowEnd time.Time) []Occurrence {
	weekdays := weekdaySet(rule.Weekdays)
	if len(weekdays) == 0 {
		return nil
	}

	startOffset, ok := parseTimeOfDay(rule.StartTime)
	if !ok {
		return nil
	}
	endOffset, ok := parseTimeOfDay(rule.EndTime)
	if !ok {
		return nil
	}
	if endOffset <= startOffset {
		return nil
	}

	firstDay := dayStart(windowStart)
	lastDay := dayStart(windowEnd)
	if lastDay.Before(firstDay) {
		return nil
	}

	var boundStart, boundEnd time.Time
	if rule.StartsOn != nil {
		boundStart = dayStart(*rule.StartsOn)
	}
	if rule.EndsOn != nil {
		boundEnd = dayStart(*rule.EndsOn)
	}

	occurrences := make([]Occurrence, 0)
	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		if _, ok := weekdays[day.Weekday()]; !ok {
			continue
		}
		if !boundStart.IsZero() && day.Before(boundStart) {
			continue
		}
		if !boundEnd.IsZero() && day.After(boundEnd) {
			continue
		}

		start := day.Add(startOffset)
		end := day.Add(endOffset)
		if !end.After(start) {
			continue
		}
		// Intersection against the caller's full-precision window, not the
		// midnight-normalized iteration bounds.
		if end.Before(windowStart) || start.After(windowEnd) {
			continue
		}

		occurrences = append(occurrences, Occurrence{
			SubjectID:  rule.SubjectID,
			Day:        day,
			Start:      start,
			End:        end,
			FirstThird: start.Add(end.Sub(start) / 3),
		})
	}

	return occurrences
}

// weekdaySet folds the configured names into a deduplicated weekday set,
// ignoring names that do not identify a weekday.
func weekdaySet(names []string) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(names))
	for _, name := range names {
		if day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
			set[day] = struct{}{}
		}
	}
	return set
}

// parseTimeOfDay converts a "15:04" value into an offset from midnight.
func parseTimeOfDay(value string) (time.Duration, bool) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, true
}

func dayStart(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

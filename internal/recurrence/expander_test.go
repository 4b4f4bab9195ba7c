package recurrence

import (
	"testing"
	"time"
)

func TestExpand_WeeklyRule(t *testing.T) {
	t.Parallel()

	// 2024-03-04 is a Monday.
	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, time.March, 13, 23, 59, 0, 0, time.UTC)

	rule := Rule{
		SubjectID: "subject-1",
		Weekdays:  []string{"Monday", "Wednesday"},
		StartTime: "08:00",
		EndTime:   "09:00",
	}

	occurrences := Expand(rule, windowStart, windowEnd)
	if len(occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
	}

	wantDays := []time.Time{
		time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC),
	}

	for i, occ := range occurrences {
		if !occ.Day.Equal(wantDays[i]) {
			t.Errorf("occurrence %d: day = %v, want %v", i, occ.Day, wantDays[i])
		}
		if got := occ.End.Sub(occ.Start); got != time.Hour {
			t.Errorf("occurrence %d: duration = %v, want 1h", i, got)
		}
		if want := occ.Start.Add(20 * time.Minute); !occ.FirstThird.Equal(want) {
			t.Errorf("occurrence %d: first third = %v, want %v", i, occ.FirstThird, want)
		}
		if occ.SubjectID != "subject-1" {
			t.Errorf("occurrence %d: subject = %q", i, occ.SubjectID)
		}
	}
}

func TestExpand_NotSchedulable(t *testing.T) {
	t.Parallel()

	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 7)

	cases := []struct {
		name string
		rule Rule
	}{
		{"empty weekday set", Rule{StartTime: "08:00", EndTime: "09:00"}},
		{"unknown weekday names only", Rule{Weekdays: []string{"Funday"}, StartTime: "08:00", EndTime: "09:00"}},
		{"missing start time", Rule{Weekdays: []string{"Monday"}, EndTime: "09:00"}},
		{"missing end time", Rule{Weekdays: []string{"Monday"}, StartTime: "08:00"}},
		{"unparseable start time", Rule{Weekdays: []string{"Monday"}, StartTime: "8 o'clock", EndTime: "09:00"}},
		{"end not after start", Rule{Weekdays: []string{"Monday"}, StartTime: "09:00", EndTime: "09:00"}},
		{"end before start", Rule{Weekdays: []string{"Monday"}, StartTime: "10:00", EndTime: "09:00"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Expand(tc.rule, windowStart, windowEnd); len(got) != 0 {
				t.Fatalf("expected no occurrences, got %d", len(got))
			}
		})
	}
}

func TestExpand_WeekdayNamesAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	windowStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 6)

	rule := Rule{
		SubjectID: "subject-1",
		Weekdays:  []string{" MONDAY ", "monday", "friDAY"},
		StartTime: "08:00",
		EndTime:   "09:00",
	}

	occurrences := Expand(rule, windowStart, windowEnd)
	if len(occurrences) != 2 {
		t.Fatalf("expected 2 occurrences (duplicates folded), got %d", len(occurrences))
	}
	if occurrences[0].Day.Weekday() != time.Monday || occurrences[1].Day.Weekday() != time.Friday {
		t.Fatalf("unexpected weekdays: %v, %v", occurrences[0].Day.Weekday(), occurrences[1].Day.Weekday())
	}
}

func TestExpand_DateBoundsAreInclusive(t *testing.T) {
	t.Parallel()

	windowStart := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	startsOn := time.Date(2024, time.March, 11, 15, 30, 0, 0, time.UTC) // Monday, mid-day instant
	endsOn := time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC)    // the next Monday

	rule := Rule{
		SubjectID: "subject-1",
		Weekdays:  []string{"Monday"},
		StartTime: "08:00",
		EndTime:   "09:00",
		StartsOn:  &startsOn,
		EndsOn:    &endsOn,
	}

	occurrences := Expand(rule, windowStart, windowEnd)
	if len(occurrences) != 2 {
		t.Fatalf("expected 2 occurrences within bounds, got %d", len(occurrences))
	}
	for _, occ := range occurrences {
		if occ.Day.Before(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)) || occ.Day.After(endsOn) {
			t.Errorf("occurrence day %v escaped bounds", occ.Day)
		}
	}
}

func TestExpand_WindowIntersectionUsesFullPrecision(t *testing.T) {
	t.Parallel()

	rule := Rule{
		SubjectID: "subject-1",
		Weekdays:  []string{"Monday"},
		StartTime: "08:00",
		EndTime:   "09:00",
	}

	monday := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	t.Run("window starting before session end keeps the occurrence", func(t *testing.T) {
		t.Parallel()
		occurrences := Expand(rule, monday.Add(8*time.Hour+30*time.Minute), monday.Add(23*time.Hour))
		if len(occurrences) != 1 {
			t.Fatalf("expected 1 occurrence, got %d", len(occurrences))
		}
	})

	t.Run("window starting after session end drops the occurrence", func(t *testing.T) {
		t.Parallel()
		occurrences := Expand(rule, monday.Add(9*time.Hour+30*time.Minute), monday.Add(23*time.Hour))
		if len(occurrences) != 0 {
			t.Fatalf("expected 0 occurrences, got %d", len(occurrences))
		}
	})

	t.Run("window ending before session start drops the occurrence", func(t *testing.T) {
		t.Parallel()
		occurrences := Expand(rule, monday, monday.Add(7*time.Hour))
		if len(occurrences) != 0 {
			t.Fatalf("expected 0 occurrences, got %d", len(occurrences))
		}
	})
}

func TestExpand_ProducedWeekdaysBelongToRule(t *testing.T) {
	t.Parallel()

	windowStart := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 2, 0)

	rule := Rule{
		SubjectID: "subject-1",
		Weekdays:  []string{"Tuesday", "Thursday"},
		StartTime: "13:15",
		EndTime:   "14:45",
	}

	var previous time.Time
	for _, occ := range Expand(rule, windowStart, windowEnd) {
		if wd := occ.Day.Weekday(); wd != time.Tuesday && wd != time.Thursday {
			t.Errorf("unexpected weekday %v", wd)
		}
		if !previous.IsZero() && !occ.Day.After(previous) {
			t.Errorf("occurrences out of ascending order: %v after %v", occ.Day, previous)
		}
		previous = occ.Day
	}
}

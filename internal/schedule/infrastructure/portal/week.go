package portal

import (
	"time"

	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

// Week is a half-open [Start, End) range starting on a Monday, 00:00 UTC.
type Week struct {
	Start time.Time
	End   time.Time
}

// WeekRange returns the week containing now, shifted by offset weeks.
func WeekRange(now time.Time, offset int) Week {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	shift := 1 - int(midnight.Weekday())
	if midnight.Weekday() == time.Sunday {
		shift = -6
	}
	start := midnight.AddDate(0, 0, shift+offset*7)
	return Week{Start: start, End: start.AddDate(0, 0, 7)}
}

// Contains reports whether t falls inside the week.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Filter keeps entries inside the week. Entries without a resolvable
// moment are kept.
func (w Week) Filter(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		t, ok := e.Moment()
		if ok && !w.Contains(t) {
			continue
		}
		out = append(out, e)
	}
	return out
}

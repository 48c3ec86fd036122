package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is a single normalized class slot as scraped from the portal.
// The JSON field order is part of the hash input and must not change.
type Entry struct {
	Title    string `json:"title"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Lecturer string `json:"lecturer"`
	Date     string `json:"date,omitempty"`  // YYYY-MM-DD
	Start    string `json:"start,omitempty"` // ISO-8601, authoritative when set
}

// NoTimestamp is the sort key of entries whose moment cannot be derived.
const NoTimestamp = int64(math.MaxInt64)

var (
	clockPattern    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	dayMonthPattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2}).*?(\d{1,2}):(\d{2})`)
)

var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Moment derives the instant an entry starts at.
// Priority: start, then date combined with the clock found in time,
// then a DD/MM ... HH:MM pattern in time using the current UTC year.
func (e Entry) Moment() (time.Time, bool) {
	return e.momentIn(time.Now().UTC().Year())
}

func (e Entry) momentIn(year int) (time.Time, bool) {
	if e.Start != "" {
		if t, ok := parseISO(e.Start); ok {
			return t, true
		}
	}

	if e.Date != "" {
		raw := e.Date
		if !strings.Contains(raw, "T") {
			raw += "T00:00:00Z"
		}
		if t, ok := parseISO(raw); ok {
			t = t.UTC()
			if m := clockPattern.FindStringSubmatch(e.Time); m != nil {
				hour, _ := strconv.Atoi(m[1])
				minute, _ := strconv.Atoi(m[2])
				t = time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, time.UTC)
			}
			return t, true
		}
	}

	if m := dayMonthPattern.FindStringSubmatch(e.Time); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		hour, _ := strconv.Atoi(m[3])
		minute, _ := strconv.Atoi(m[4])
		return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// Timestamp returns the entry moment in Unix milliseconds, or NoTimestamp.
func (e Entry) Timestamp() int64 {
	t, ok := e.Moment()
	if !ok {
		return NoTimestamp
	}
	return t.UnixMilli()
}

// HasMoment reports whether a start instant can be derived for the entry.
func (e Entry) HasMoment() bool {
	_, ok := e.Moment()
	return ok
}

func parseISO(value string) (time.Time, bool) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompareEntries orders entries by timestamp, entries without one last.
// Equal timestamps fall back to the field tuple so the order is total.
func CompareEntries(a, b Entry) int {
	ta, tb := a.Timestamp(), b.Timestamp()
	switch {
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	}
	for _, pair := range [][2]string{
		{a.Start, b.Start},
		{a.Date, b.Date},
		{a.Time, b.Time},
		{a.Title, b.Title},
		{a.Location, b.Location},
		{a.Lecturer, b.Lecturer},
	} {
		if c := strings.Compare(pair[0], pair[1]); c != 0 {
			return c
		}
	}
	return 0
}

// HasUpcoming reports whether any entry starts at or after now.
// Entries without a derivable moment count as upcoming.
func HasUpcoming(entries []Entry, now time.Time) bool {
	for _, e := range entries {
		t, ok := e.Moment()
		if !ok || !t.Before(now) {
			return true
		}
	}
	return false
}

// Package render turns schedule entries and diffs into message text.
package render

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goodsign/monday"

	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

const (
	BulletDefault = "•"
	BulletAdded   = "➕"
	BulletUpdated = "✏️"
	BulletRemoved = "➖"

	courseSeparator = " — "
	detailSeparator = "  •  "
	fallbackGroup   = "Eventos"
)

var (
	leadingDayLabel = regexp.MustCompile(`^[^ ]+\s`)
	timeDayLabel    = regexp.MustCompile(`^(\w{3}\s\d{1,2}\s\w{3})`)
)

// CourseMeta splits a "name — code" title.
func CourseMeta(title string) (name, code string) {
	parts := strings.SplitN(title, courseSeparator, 3)
	name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		code = strings.TrimSpace(parts[1])
	}
	return name, code
}

// displayTime strips the leading day token from the time when a date is known.
func displayTime(e domain.Entry) string {
	if e.Date == "" {
		return e.Time
	}
	return leadingDayLabel.ReplaceAllString(e.Time, "")
}

// EntryLine renders one entry as a bullet line with an optional detail line.
func EntryLine(e domain.Entry, bullet string) string {
	if bullet == "" {
		bullet = BulletDefault
	}
	name, code := CourseMeta(e.Title)

	prefix := bullet
	if t := displayTime(e); t != "" {
		prefix = bullet + " **" + t + "**"
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" **")
	b.WriteString(name)
	b.WriteString("**")
	if code != "" {
		b.WriteString(" `")
		b.WriteString(code)
		b.WriteString("`")
	}

	var details []string
	if e.Location != "" {
		details = append(details, "📍 "+e.Location)
	}
	if e.Lecturer != "" {
		details = append(details, "👤 "+e.Lecturer)
	}
	if len(details) > 0 {
		b.WriteString("\n  ")
		b.WriteString(strings.Join(details, detailSeparator))
	}

	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

// Group is a labelled bucket of entries sharing a calendar day.
type Group struct {
	Label   string
	Entries []domain.Entry
}

// Formatter renders dates in a fixed time zone with Portuguese names.
type Formatter struct {
	loc *time.Location
	now func() time.Time
}

// NewFormatter creates a formatter for loc. A nil loc means UTC.
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc, now: time.Now}
}

// WithClock returns a copy of f that reads the current time from now.
func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	c := *f
	c.now = now
	return &c
}

// Location returns the formatter's time zone.
func (f *Formatter) Location() *time.Location { return f.loc }

// Now returns the formatter's current time.
func (f *Formatter) Now() time.Time { return f.now() }

func (f *Formatter) weekdayLong(t time.Time) string {
	return capitalizeFirst(strings.ToLower(monday.Format(t.In(f.loc), "Monday", monday.LocalePtPT)))
}

func (f *Formatter) weekdayShort(t time.Time) string {
	return capitalizeFirst(strings.ToLower(monday.Format(t.In(f.loc), "Mon", monday.LocalePtPT)))
}

// ShortDate renders "4 mar".
func (f *Formatter) ShortDate(t time.Time) string {
	return strings.ToLower(monday.Format(t.In(f.loc), "2 Jan", monday.LocalePtPT))
}

// GroupByDay buckets entries by calendar day in first-seen order.
func (f *Formatter) GroupByDay(entries []domain.Entry) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, e := range entries {
		label := fallbackGroup
		if t, ok := e.Moment(); ok {
			label = f.weekdayLong(t) + " • " + f.ShortDate(t)
		} else if m := timeDayLabel.FindStringSubmatch(e.Time); m != nil {
			label = m[1]
		}

		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// RangeLabel renders the earliest and latest entry days as "a → b".
// It is empty when no entry has a derivable date.
func (f *Formatter) RangeLabel(entries []domain.Entry) string {
	var first, last time.Time
	found := false
	for _, e := range entries {
		t, ok := e.Moment()
		if !ok {
			continue
		}
		if !found || t.Before(first) {
			first = t
		}
		if !found || t.After(last) {
			last = t
		}
		found = true
	}
	if !found {
		return ""
	}

	start, end := f.ShortDate(first), f.ShortDate(last)
	if start == end {
		return start
	}
	return start + " → " + end
}

// Headline renders the "next class" summary of an entry.
func (f *Formatter) Headline(e domain.Entry) string {
	name, code := CourseMeta(e.Title)

	var prefix []string
	if t, ok := e.Moment(); ok {
		prefix = append(prefix, f.weekdayShort(t))
	}
	if t := displayTime(e); t != "" {
		prefix = append(prefix, t)
	}

	headline := name
	if len(prefix) > 0 {
		headline = strings.Join(prefix, " • ") + courseSeparator + name
	}
	if code != "" {
		headline += " (" + code + ")"
	}
	if e.Location != "" {
		headline += courseSeparator + e.Location
	}
	return headline
}

// NextEntry returns the first entry that starts strictly after now.
// Entries are expected in sorted order.
func NextEntry(entries []domain.Entry, now time.Time) (domain.Entry, bool) {
	for _, e := range entries {
		if t, ok := e.Moment(); ok && t.After(now) {
			return e, true
		}
	}
	return domain.Entry{}, false
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// truncate limits s to limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

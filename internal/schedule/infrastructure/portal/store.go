package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

// storeEvent is one calendar event store record with HTML fields.
type storeEvent struct {
	Title    string
	Start    string
	End      string
	Location string
	Notes    string
}

var (
	msDatePattern  = regexp.MustCompile(`^/Date\((-?\d+)(?:[+-]\d{4})?\)/$`)
	isoDatePrefix  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	trailingAula   = regexp.MustCompile(`(?i)aula$`)
	storeContainer = []string{"items", "data", "events", "rows", "records"}
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// fetchEventStore reads the event store endpoint and returns the entries
// of week, ordered by start.
func (c *Client) fetchEventStore(ctx context.Context, session *resty.Client, week Week) ([]domain.Entry, error) {
	res, err := session.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/javascript, */*").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		Get(c.cfg.EventsURL)
	if err != nil {
		return nil, fmt.Errorf("GET event store: %w", err)
	}
	if res.StatusCode() == http.StatusServiceUnavailable {
		return nil, &domain.ServiceUnavailableError{Reason: "event store returned 503"}
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET event store: unexpected status %d", res.StatusCode())
	}
	if reason, down := unavailable(string(res.Body())); down {
		return nil, &domain.ServiceUnavailableError{Reason: reason}
	}

	events, err := decodeEventStore(res.Body())
	if err != nil {
		return nil, err
	}
	return normalizeEvents(events, c.cfg.Location, week), nil
}

// decodeEventStore accepts a bare array of records or an object nesting
// one under a container key. Records may wrap their fields in "data".
func decodeEventStore(body []byte) ([]storeEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode event store: %w", err)
	}

	items := storeItems(root)
	events := make([]storeEvent, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if data, ok := record["data"].(map[string]any); ok {
			record = data
		}
		events = append(events, storeEvent{
			Title:    field(record, "Title", "title"),
			Start:    field(record, "Start", "start"),
			End:      field(record, "End", "end"),
			Location: field(record, "Location", "location"),
			Notes:    field(record, "Notes", "notes"),
		})
	}
	return events, nil
}

func storeItems(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		for _, key := range storeContainer {
			if nested, ok := t[key]; ok {
				if items := storeItems(nested); items != nil {
					return items
				}
			}
		}
	}
	return nil
}

func field(record map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := record[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case json.Number:
			return t.String()
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

// normalizeEvents converts store records to entries inside week.
func normalizeEvents(events []storeEvent, loc *time.Location, week Week) []domain.Entry {
	type dated struct {
		entry domain.Entry
		start time.Time
	}
	var kept []dated
	for _, ev := range events {
		entry, start, ok := normalizeEvent(ev, loc)
		if !ok || !week.Contains(start) {
			continue
		}
		kept = append(kept, dated{entry: entry, start: start})
	}
	slices.SortStableFunc(kept, func(a, b dated) int { return a.start.Compare(b.start) })

	entries := make([]domain.Entry, len(kept))
	for i, d := range kept {
		entries[i] = d.entry
	}
	return entries
}

// normalizeEvent splits the title HTML into course, code, location and
// lecturer lines. Missing location and lecturer lines fall back to the
// record's own fields.
func normalizeEvent(ev storeEvent, loc *time.Location) (domain.Entry, time.Time, bool) {
	if ev.Start == "" {
		return domain.Entry{}, time.Time{}, false
	}
	start, ok := parseStart(ev.Start, loc)
	if !ok {
		return domain.Entry{}, time.Time{}, false
	}

	chunks := splitLines(ev.Title)
	if len(chunks) == 0 {
		return domain.Entry{}, time.Time{}, false
	}

	course := chunks[0]
	code := at(chunks, 1)
	location := at(chunks, 2)
	if len(chunks) <= 2 {
		location = normalizeText(ev.Location)
	}
	lecturer := at(chunks, 3)
	if len(chunks) <= 3 {
		lecturer = normalizeText(ev.Notes)
	}
	lecturer = strings.TrimSpace(trailingAula.ReplaceAllString(lecturer, ""))

	title := course
	if code != "" {
		title = course + " — " + code
	}

	date := start.In(loc).Format("2006-01-02")
	if isoDatePrefix.MatchString(ev.Start) {
		date = ev.Start[:10]
	}

	return domain.Entry{
		Title:    title,
		Time:     start.In(loc).Format("15:04"),
		Location: location,
		Lecturer: lecturer,
		Date:     date,
		Start:    start.UTC().Format("2006-01-02T15:04:05.000Z"),
	}, start, true
}

// parseStart understands RFC 3339, naive local timestamps, epoch
// milliseconds and the Microsoft JSON date form.
func parseStart(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if m := msDatePattern.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func at(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

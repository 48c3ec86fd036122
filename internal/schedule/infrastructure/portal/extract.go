package portal

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goodsign/monday"

	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

const (
	sourceExtCalendar  = "ext-calendar"
	sourceFullCalendar = "fullcalendar"
	sourceTable        = "table"
	sourceNone         = "none"
)

const fullCalendarEvents = ".fc-event, .fc-daygrid-event, .fc-timegrid-event, .fc-list-event, .ext-cal-evt"

var (
	lineBreak      = regexp.MustCompile(`(?i)<br[^>]*>`)
	headerClock    = regexp.MustCompile(`^(\d{1,2}:\d{2})\s*(.*)$`)
	classDate      = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	detailSplit    = regexp.MustCompile(`\n|\r|\t| {2,}`)
	roomLine       = regexp.MustCompile(`(?i)(sala|room)`)
	lecturerLine   = regexp.MustCompile(`(?i)(docente|professor|professora|orientador)`)
	labelPrefix    = regexp.MustCompile(`^.*?:\s*`)
	tableRows      = "[data-schedule-row], table.schedule-table tbody tr"
	tableTitle     = "[data-schedule-title], .discipline, td:nth-child(2)"
	tableTime      = "[data-schedule-time], .time, td:nth-child(1)"
	tableRoom      = "[data-schedule-room], .room, td:nth-child(3)"
	tableLecturer  = "[data-schedule-lecturer], .teacher, td:nth-child(4)"
	fcTimeNodes    = []string{".fc-event-time", ".fc-time", ".fc-list-event-time"}
	fcTitleNodes   = []string{".fc-event-title", ".fc-title", ".fc-list-event-title", ".fc-sticky"}
	fcTooltipAttrs = []string{"data-original-title", "title"}
)

// extractDocument tries the calendar widgets first and the schedule table
// last, returning the entries of the first layout that yields any.
func extractDocument(doc *goquery.Document) ([]domain.Entry, string) {
	if entries := extractExtCalendar(doc); len(entries) > 0 {
		return entries, sourceExtCalendar
	}
	if entries := extractFullCalendar(doc); len(entries) > 0 {
		return entries, sourceFullCalendar
	}
	if entries := extractTable(doc); len(entries) > 0 {
		return entries, sourceTable
	}
	return nil, sourceNone
}

func extractExtCalendar(doc *goquery.Document) []domain.Entry {
	var entries []domain.Entry
	doc.Find(".ext-cal-evt").Each(func(_ int, node *goquery.Selection) {
		body := node.Find(".ext-evt-bd").First()
		if body.Length() == 0 {
			body = node
		}
		raw, err := body.Html()
		if err != nil {
			return
		}
		parts := splitLines(raw)
		if len(parts) == 0 {
			return
		}

		header := parts[0]
		code := at(parts, 1)
		location := at(parts, 2)
		lecturer := strings.TrimSpace(trailingAula.ReplaceAllString(at(parts, 3), ""))

		clock, course := "", header
		if m := headerClock.FindStringSubmatch(header); m != nil {
			clock = m[1]
			if strings.TrimSpace(m[2]) != "" {
				course = m[2]
			}
		}
		course = strings.TrimSpace(course)
		if course == "" {
			return
		}
		title := course
		if code != "" {
			title = course + " — " + code
		}

		var date string
		for _, class := range strings.Fields(node.AttrOr("class", "")) {
			if m := classDate.FindString(class); m != "" {
				date = m
				break
			}
		}

		entries = append(entries, domain.Entry{
			Title:    title,
			Time:     withDayLabel(date, clock),
			Location: location,
			Lecturer: lecturer,
			Date:     date,
		})
	})
	return entries
}

func extractFullCalendar(doc *goquery.Document) []domain.Entry {
	var entries []domain.Entry
	doc.Find(fullCalendarEvents).Each(func(_ int, node *goquery.Selection) {
		clock := firstText(node, fcTimeNodes)
		title := firstText(node, fcTitleNodes)
		tooltip := firstAttr(node, fcTooltipAttrs)

		date := node.AttrOr("data-date", "")
		if date == "" {
			if parent := node.Closest("[data-date]"); parent.Length() > 0 {
				date = parent.AttrOr("data-date", "")
			} else if parent := node.Closest("[data-date-str]"); parent.Length() > 0 {
				date = firstAttr(parent, []string{"data-date", "data-date-str"})
			}
		}

		details := tooltip
		if details == "" {
			details = node.Text()
		}
		var lines []string
		for _, line := range detailSplit.Split(details, -1) {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}

		var location, lecturer string
		for _, line := range lines {
			if location == "" && roomLine.MatchString(line) {
				location = labelPrefix.ReplaceAllString(line, "")
			}
			if lecturer == "" && lecturerLine.MatchString(line) {
				lecturer = labelPrefix.ReplaceAllString(line, "")
			}
		}

		if title == "" && len(lines) > 0 {
			title = lines[0]
		}
		if title == "" {
			return
		}

		entries = append(entries, domain.Entry{
			Title:    title,
			Time:     withDayLabel(date, clock),
			Location: location,
			Lecturer: lecturer,
			Date:     date,
		})
	})
	return entries
}

func extractTable(doc *goquery.Document) []domain.Entry {
	var entries []domain.Entry
	doc.Find(tableRows).Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(row.Find(tableTitle).First().Text())
		clock := strings.TrimSpace(row.Find(tableTime).First().Text())
		if title == "" && clock == "" {
			return
		}
		entries = append(entries, domain.Entry{
			Title:    title,
			Time:     clock,
			Location: strings.TrimSpace(row.Find(tableRoom).First().Text()),
			Lecturer: strings.TrimSpace(row.Find(tableLecturer).First().Text()),
		})
	})
	return entries
}

// withDayLabel prefixes clock with a short pt-PT weekday for date.
func withDayLabel(date, clock string) string {
	if date == "" {
		return clock
	}
	raw := date
	if !strings.Contains(raw, "T") {
		raw += "T00:00:00"
	}
	t, ok := parseStart(raw, time.UTC)
	if !ok {
		return clock
	}
	label := strings.ToLower(monday.Format(t, "Mon", monday.LocalePtPT))
	return strings.TrimSpace(label + " " + clock)
}

// splitLines splits an HTML fragment on <br> and returns the non-empty
// plain text lines.
func splitLines(fragment string) []string {
	var lines []string
	for _, part := range lineBreak.Split(fragment, -1) {
		if text := normalizeText(part); text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

// normalizeText strips tags, decodes entities and collapses whitespace,
// including non-breaking spaces.
func normalizeText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstText(scope *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(scope.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(scope *goquery.Selection, attrs []string) string {
	for _, attr := range attrs {
		if v := scope.AttrOr(attr, ""); v != "" {
			return v
		}
	}
	return ""
}

package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/campusbot/internal/messaging"
	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

const (
	maxDayFields      = 5
	maxFieldValue     = 1024
	maxSummaryLines   = 5
	emptyValue        = "—"
	scheduleTitle     = "📅 Horário semanal"
	changesTitle      = "Alterações mais recentes"
	changesContent    = "O horário do NetPA foi atualizado."
	footerNormal      = "Atualizado automaticamente"
	footerDegraded    = "Último horário conhecido — NetPA indisponível"
	lineUnavailable   = "⚠️ O NetPA está indisponível. A mostrar o último horário conhecido."
	lineNoCache       = "Ainda não existe um horário guardado para apresentar."
	lineWillRetry     = "Vamos atualizar assim que o NetPA voltar a responder."
	lineNoEvents      = "Nenhum evento encontrado para o período atual."
	lineSynced        = "Horário sincronizado automaticamente com o NetPA."
	lineSyncSuspended = "Sincronização suspensa até o NetPA voltar a responder."
)

// ScheduleEmbed renders the canonical weekly schedule view.
// Degraded mode switches colour, footer and status lines.
func (f *Formatter) ScheduleEmbed(entries []domain.Entry, degraded bool) messaging.Embed {
	now := f.now()
	sorted := domain.SortEntries(entries)

	embed := messaging.Embed{
		Title:     scheduleTitle,
		Color:     messaging.ColorSchedule,
		Timestamp: now.UTC().Format(time.RFC3339),
		Footer:    &messaging.EmbedFooter{Text: footerNormal},
	}
	if degraded {
		embed.Color = messaging.ColorDegraded
		embed.Footer.Text = footerDegraded
	}

	if len(sorted) == 0 {
		var lines []string
		if degraded {
			lines = append(lines, lineUnavailable, lineNoCache, lineWillRetry)
		} else {
			lines = append(lines, lineNoEvents, lineSynced)
		}
		embed.Description = strings.Join(lines, "\n")
		return embed
	}

	var header []string
	if degraded {
		header = append(header, lineUnavailable)
	}
	if label := f.RangeLabel(sorted); label != "" {
		header = append(header, "**Período:** "+label)
	}
	if next, ok := NextEntry(sorted, now); ok {
		header = append(header, "**Próxima aula:** "+f.Headline(next))
	}
	if degraded {
		header = append(header, lineSyncSuspended)
	} else {
		header = append(header, lineSynced)
	}
	embed.Description = strings.Join(header, "\n")

	groups := f.GroupByDay(sorted)
	if len(groups) > maxDayFields {
		groups = groups[:maxDayFields]
	}
	for _, g := range groups {
		lines := make([]string, 0, len(g.Entries))
		for _, e := range g.Entries {
			lines = append(lines, EntryLine(e, BulletDefault))
		}
		value := truncate(strings.Join(lines, "\n"), maxFieldValue)
		if value == "" {
			continue
		}
		embed.Fields = append(embed.Fields, messaging.EmbedField{Name: g.Label, Value: value})
	}

	return embed
}

// ScheduleMessage wraps the schedule embed with mentions suppressed.
func (f *Formatter) ScheduleMessage(entries []domain.Entry, degraded bool) messaging.Message {
	return messaging.Message{
		Content:         "",
		Embeds:          []messaging.Embed{f.ScheduleEmbed(entries, degraded)},
		AllowedMentions: messaging.NoMentions(),
	}
}

// ChangeMessage renders the change notification. ok is false when the
// diff yields no summary lines.
func (f *Formatter) ChangeMessage(d domain.Diff) (messaging.Message, bool) {
	lines := ChangeSummary(d)
	if len(lines) == 0 {
		return messaging.Message{}, false
	}

	embed := messaging.Embed{
		Title:       changesTitle,
		Description: strings.Join(lines, "\n"),
		Color:       messaging.ColorChanges,
		Timestamp:   f.now().UTC().Format(time.RFC3339),
	}
	if footer := ChangeFooter(d); footer != "" {
		embed.Footer = &messaging.EmbedFooter{Text: footer}
	}

	return messaging.Message{
		Content:         changesContent,
		Embeds:          []messaging.Embed{embed},
		AllowedMentions: messaging.NoMentions(),
	}, true
}

// ChangeSummary lists updated, then added, then removed entries,
// keeping at most five lines.
func ChangeSummary(d domain.Diff) []string {
	var lines []string
	for _, c := range d.Updated {
		line := EntryLine(c.Current, BulletUpdated)
		if details := DescribeChanges(c.Previous, c.Current); details != "" {
			line += "\n  " + details
		}
		lines = append(lines, line)
	}
	for _, e := range d.Added {
		lines = append(lines, EntryLine(e, BulletAdded))
	}
	for _, e := range d.Removed {
		lines = append(lines, EntryLine(e, BulletRemoved))
	}
	if len(lines) > maxSummaryLines {
		lines = lines[:maxSummaryLines]
	}
	return lines
}

// ChangeFooter renders the per-kind counts, skipping zero counts.
func ChangeFooter(d domain.Diff) string {
	added, updated, removed := d.Counts()
	var parts []string
	if added > 0 {
		parts = append(parts, BulletAdded+" "+strconv.Itoa(added))
	}
	if updated > 0 {
		parts = append(parts, BulletUpdated+" "+strconv.Itoa(updated))
	}
	if removed > 0 {
		parts = append(parts, BulletRemoved+" "+strconv.Itoa(removed))
	}
	return strings.Join(parts, detailSeparator)
}

// DescribeChanges lists field level before/after deltas.
func DescribeChanges(previous, current domain.Entry) string {
	var deltas []string
	add := func(icon, before, after string) {
		if before == after {
			return
		}
		deltas = append(deltas, icon+" "+orDash(before)+" → "+orDash(after))
	}
	add("🕘", previous.Time, current.Time)
	add("📍", previous.Location, current.Location)
	add("👤", previous.Lecturer, current.Lecturer)
	add("📅", previous.Date, current.Date)
	return strings.Join(deltas, " | ")
}

func orDash(s string) string {
	if s == "" {
		return emptyValue
	}
	return s
}

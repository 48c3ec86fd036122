package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/campusbot/internal/messaging"
	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

var fixedNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func testFormatter() *Formatter {
	return NewFormatter(time.UTC).WithClock(func() time.Time { return fixedNow })
}

func weekEntries() []domain.Entry {
	return []domain.Entry{
		{Title: "Redes — CS202", Time: "Seg 4 mar 11:00", Date: "2024-03-04", Start: "2024-03-04T11:00:00Z", Location: "Sala 3", Lecturer: "Dra. Costa"},
		{Title: "Algoritmos — CS101", Time: "09:00", Date: "2024-03-04", Start: "2024-03-04T09:00:00Z", Location: "Sala 1", Lecturer: "Dr. Silva"},
		{Title: "Bases de Dados", Time: "14:00", Date: "2024-03-06", Location: "Lab 2"},
	}
}

func TestEntryLine(t *testing.T) {
	t.Run("full entry", func(t *testing.T) {
		e := domain.Entry{Title: "Algoritmos — CS101", Time: "Seg 4 mar 09:00", Date: "2024-03-04", Location: "Sala 1", Lecturer: "Dr. Silva"}

		got := EntryLine(e, "")

		assert.Equal(t, "• **4 mar 09:00** **Algoritmos** `CS101`\n  📍 Sala 1  •  👤 Dr. Silva", got)
	})

	t.Run("keeps time when no date", func(t *testing.T) {
		e := domain.Entry{Title: "Seminário", Time: "Seg 09:00"}

		assert.Equal(t, "➕ **Seg 09:00** **Seminário**", EntryLine(e, BulletAdded))
	})

	t.Run("no time", func(t *testing.T) {
		e := domain.Entry{Title: "Seminário", Lecturer: "Dr. Lopes"}

		assert.Equal(t, "➖ **Seminário**\n  👤 Dr. Lopes", EntryLine(e, BulletRemoved))
	})
}

func TestCourseMeta(t *testing.T) {
	name, code := CourseMeta(" Algoritmos—CS101 ")
	assert.Equal(t, "Algoritmos—CS101", name, "separator requires surrounding spaces")
	assert.Empty(t, code)

	name, code = CourseMeta("Algoritmos — CS101")
	assert.Equal(t, "Algoritmos", name)
	assert.Equal(t, "CS101", code)
}

func TestFormatter_GroupByDay(t *testing.T) {
	f := testFormatter()
	entries := domain.SortEntries(append(weekEntries(),
		domain.Entry{Title: "Palestra", Time: "Qua 6 mar (sala a definir)"},
		domain.Entry{Title: "Tutoria", Time: "a combinar"},
	))

	groups := f.GroupByDay(entries)

	require.Len(t, groups, 4)
	assert.True(t, strings.HasPrefix(groups[0].Label, "Segunda"), groups[0].Label)
	assert.True(t, strings.HasSuffix(groups[0].Label, " • 4 mar"), groups[0].Label)
	assert.Len(t, groups[0].Entries, 2)
	assert.True(t, strings.HasSuffix(groups[1].Label, " • 6 mar"), groups[1].Label)
	assert.Equal(t, "Qua 6 mar", groups[2].Label)
	assert.Equal(t, "Eventos", groups[3].Label)
}

func TestFormatter_RangeLabel(t *testing.T) {
	f := testFormatter()

	assert.Equal(t, "4 mar → 6 mar", f.RangeLabel(weekEntries()))
	assert.Equal(t, "4 mar", f.RangeLabel(weekEntries()[:2]))
	assert.Empty(t, f.RangeLabel([]domain.Entry{{Title: "x"}}))
}

func TestFormatter_Headline(t *testing.T) {
	f := testFormatter()

	got := f.Headline(weekEntries()[0])

	assert.True(t, strings.HasPrefix(got, "Seg • 4 mar 11:00 — Redes (CS202) — Sala 3"), got)

	bare := f.Headline(domain.Entry{Title: "Tutoria"})
	assert.Equal(t, "Tutoria", bare)
}

func TestNextEntry(t *testing.T) {
	sorted := domain.SortEntries(weekEntries())

	next, ok := NextEntry(sorted, fixedNow)

	require.True(t, ok)
	assert.Equal(t, "Redes — CS202", next.Title)

	_, ok = NextEntry(sorted, fixedNow.AddDate(0, 0, 7))
	assert.False(t, ok)
}

func TestFormatter_ScheduleEmbed(t *testing.T) {
	f := testFormatter()

	t.Run("normal", func(t *testing.T) {
		embed := f.ScheduleEmbed(weekEntries(), false)

		assert.Equal(t, "📅 Horário semanal", embed.Title)
		assert.Equal(t, messaging.ColorSchedule, embed.Color)
		assert.Equal(t, "Atualizado automaticamente", embed.Footer.Text)
		assert.Equal(t, "2024-03-04T10:00:00Z", embed.Timestamp)

		lines := strings.Split(embed.Description, "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "**Período:** 4 mar → 6 mar", lines[0])
		assert.Contains(t, lines[1], "**Próxima aula:** ")
		assert.Contains(t, lines[1], "Redes (CS202)")
		assert.Equal(t, "Horário sincronizado automaticamente com o NetPA.", lines[2])

		require.Len(t, embed.Fields, 2)
		assert.True(t, strings.HasPrefix(embed.Fields[0].Value, "• **09:00** **Algoritmos**"))
	})

	t.Run("degraded with cache", func(t *testing.T) {
		embed := f.ScheduleEmbed(weekEntries(), true)

		assert.Equal(t, messaging.ColorDegraded, embed.Color)
		assert.Equal(t, "Último horário conhecido — NetPA indisponível", embed.Footer.Text)
		assert.True(t, strings.HasPrefix(embed.Description, "⚠️ O NetPA está indisponível."))
		assert.True(t, strings.HasSuffix(embed.Description, "Sincronização suspensa até o NetPA voltar a responder."))
		assert.NotEmpty(t, embed.Fields)
	})

	t.Run("degraded without cache", func(t *testing.T) {
		embed := f.ScheduleEmbed(nil, true)

		assert.Contains(t, embed.Description, "Ainda não existe um horário guardado para apresentar.")
		assert.Empty(t, embed.Fields)
	})

	t.Run("empty week", func(t *testing.T) {
		embed := f.ScheduleEmbed(nil, false)

		assert.Equal(t, "Nenhum evento encontrado para o período atual.\nHorário sincronizado automaticamente com o NetPA.", embed.Description)
	})

	t.Run("caps fields and values", func(t *testing.T) {
		var entries []domain.Entry
		for day := 1; day <= 7; day++ {
			for i := 0; i < 30; i++ {
				entries = append(entries, domain.Entry{
					Title:    strings.Repeat("Curso longo ", 3),
					Start:    time.Date(2024, 3, day, 8+i%10, i, 0, 0, time.UTC).Format(time.RFC3339),
					Location: "Sala",
				})
			}
		}

		embed := f.ScheduleEmbed(entries, false)

		assert.Len(t, embed.Fields, 5)
		for _, field := range embed.Fields {
			assert.LessOrEqual(t, len([]rune(field.Value)), 1024)
		}
	})
}

func TestFormatter_ScheduleMessage_SuppressesMentions(t *testing.T) {
	msg := testFormatter().ScheduleMessage(weekEntries(), false)

	assert.Empty(t, msg.Content)
	require.NotNil(t, msg.AllowedMentions)
	assert.Empty(t, msg.AllowedMentions.Parse)
	assert.Len(t, msg.Embeds, 1)
}

func TestChangeSummary(t *testing.T) {
	entries := weekEntries()
	moved := entries[1]
	moved.Location = "Sala 2"

	d := domain.Diff{
		Updated: []domain.Change{{Previous: entries[1], Current: moved}},
		Added:   []domain.Entry{entries[2]},
		Removed: []domain.Entry{entries[0]},
	}

	lines := ChangeSummary(d)

	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "✏️ **09:00** **Algoritmos**"))
	assert.True(t, strings.HasSuffix(lines[0], "\n  📍 Sala 1 → Sala 2"))
	assert.True(t, strings.HasPrefix(lines[1], "➕ "))
	assert.True(t, strings.HasPrefix(lines[2], "➖ "))
}

func TestChangeSummary_PrioritizesUpdates(t *testing.T) {
	var d domain.Diff
	for i := 0; i < 4; i++ {
		prev := domain.Entry{Title: "T", Start: time.Date(2024, 3, 4, 8+i, 0, 0, 0, time.UTC).Format(time.RFC3339)}
		cur := prev
		cur.Lecturer = "novo"
		d.Updated = append(d.Updated, domain.Change{Previous: prev, Current: cur})
	}
	d.Added = []domain.Entry{{Title: "A1"}, {Title: "A2"}}
	d.Removed = []domain.Entry{{Title: "R1"}}

	lines := ChangeSummary(d)

	require.Len(t, lines, 5)
	for _, line := range lines[:4] {
		assert.True(t, strings.HasPrefix(line, BulletUpdated))
	}
	assert.Equal(t, "➕ **A1**", lines[4])
}

func TestChangeSummary_RemovedScenario(t *testing.T) {
	entries := weekEntries()
	d := domain.DiffEntries(entries[:2], entries[:1])

	lines := ChangeSummary(d)

	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "➖ **09:00** **Algoritmos**"))
}

func TestDescribeChanges(t *testing.T) {
	prev := domain.Entry{Time: "09:00", Location: "Sala 1", Date: "2024-03-04"}
	cur := domain.Entry{Time: "10:00", Lecturer: "Dr. Silva", Date: "2024-03-04"}

	got := DescribeChanges(prev, cur)

	assert.Equal(t, "🕘 09:00 → 10:00 | 📍 Sala 1 → — | 👤 — → Dr. Silva", got)
	assert.Empty(t, DescribeChanges(prev, prev))
}

func TestChangeFooter(t *testing.T) {
	d := domain.Diff{Added: make([]domain.Entry, 2), Removed: make([]domain.Entry, 1)}

	assert.Equal(t, "➕ 2  •  ➖ 1", ChangeFooter(d))
	assert.Empty(t, ChangeFooter(domain.Diff{}))
}

func TestFormatter_ChangeMessage(t *testing.T) {
	f := testFormatter()

	_, ok := f.ChangeMessage(domain.Diff{})
	assert.False(t, ok)

	msg, ok := f.ChangeMessage(domain.Diff{Added: []domain.Entry{{Title: "X"}}})
	require.True(t, ok)
	assert.Equal(t, "O horário do NetPA foi atualizado.", msg.Content)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, "Alterações mais recentes", msg.Embeds[0].Title)
	assert.Equal(t, messaging.ColorChanges, msg.Embeds[0].Color)
	assert.Equal(t, "➕ 1", msg.Embeds[0].Footer.Text)
}

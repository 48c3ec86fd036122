package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventStore_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ext store", `{"data":{"items":[{"data":{"Title":"A","Start":"2024-03-04T09:00:00Z"}}]}}`},
		{"bare array", `[{"title":"A","start":"2024-03-04T09:00:00Z"}]`},
		{"items root", `{"items":[{"Title":"A","Start":"2024-03-04T09:00:00Z"}]}`},
		{"data array", `{"success":true,"data":[{"Title":"A","Start":"2024-03-04T09:00:00Z"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := decodeEventStore([]byte(tt.body))
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "A", events[0].Title)
			assert.Equal(t, "2024-03-04T09:00:00Z", events[0].Start)
		})
	}
}

func TestDecodeEventStore_Invalid(t *testing.T) {
	_, err := decodeEventStore([]byte("<html>"))
	assert.Error(t, err)

	events, err := decodeEventStore([]byte(`{"nothing":true}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseStart(t *testing.T) {
	lisbon := time.FixedZone("WEST", 3600)
	want := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		raw string
		loc *time.Location
	}{
		{"2024-03-04T09:00:00Z", time.UTC},
		{"2024-03-04T10:00:00+01:00", time.UTC},
		{"2024-03-04T09:00:00.000Z", time.UTC},
		{"2024-03-04T10:00:00", lisbon},
		{"2024-03-04 10:00", lisbon},
		{"1709542800000", time.UTC},
		{"/Date(1709542800000)/", time.UTC},
		{"/Date(1709542800000+0000)/", time.UTC},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseStart(tt.raw, tt.loc)
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, ok := parseStart("amanhã", time.UTC)
	assert.False(t, ok)
}

func TestNormalizeEvent(t *testing.T) {
	lisbon := time.FixedZone("WEST", 3600)

	entry, _, ok := normalizeEvent(storeEvent{
		Title: "Redes<br>CS202<br>Sala 3<br>Dra. Costa AULA",
		Start: "2024-03-04T09:30:00Z",
	}, lisbon)

	require.True(t, ok)
	assert.Equal(t, "Redes — CS202", entry.Title)
	assert.Equal(t, "10:30", entry.Time, "clock rendered in the configured zone")
	assert.Equal(t, "Dra. Costa", entry.Lecturer)
	assert.Equal(t, "2024-03-04", entry.Date)
	assert.Equal(t, "2024-03-04T09:30:00.000Z", entry.Start)

	entry, _, ok = normalizeEvent(storeEvent{Title: "Só curso", Start: "/Date(1709542800000)/"}, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "Só curso", entry.Title)
	assert.Equal(t, "2024-03-04", entry.Date)

	_, _, ok = normalizeEvent(storeEvent{Title: "x", Start: "garbage"}, time.UTC)
	assert.False(t, ok)
}

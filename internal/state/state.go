// Package state holds the process-wide persisted record shared by the
// watchers and the port used to load and save it.
package state

import (
	"context"
	"encoding/json"
	"time"

	announcements "github.com/felixgeelhaar/campusbot/internal/announcements/domain"
	schedule "github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

// PanelState is carried through untouched for the transit panel feature.
type PanelState struct {
	CPPanelMessageID string
}

// PersistentState groups the records owned by each watcher.
// On disk it is one flat JSON object; unknown keys survive a round trip.
type PersistentState struct {
	Schedule      schedule.ScheduleState
	Announcements announcements.AnnouncementState
	Panel         PanelState

	extra map[string]json.RawMessage
}

// Default returns the state used when nothing has been persisted yet.
func Default() PersistentState {
	return PersistentState{}
}

// Store loads and saves the persisted state.
// Read returns Default when nothing is stored and never fails for that reason.
type Store interface {
	Read(ctx context.Context) (PersistentState, error)
	Write(ctx context.Context, s PersistentState) error
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type wireState struct {
	ScheduleHash            string           `json:"scheduleHash"`
	ScheduleMessageID       *string          `json:"scheduleMessageId"`
	ScheduleChangeMessageID *string          `json:"scheduleChangeMessageId"`
	Announcements           []string         `json:"announcements"`
	ScheduleEntries         []schedule.Entry `json:"scheduleEntries"`
	ScheduleLastAttemptAt   *string          `json:"scheduleLastAttemptAt"`
	ScheduleLastSuccessAt   *string          `json:"scheduleLastSuccessAt"`
	CPPanelMessageID        *string          `json:"cpPanelMessageId"`
}

var knownKeys = map[string]string{
	"scheduleHash":            RecordSchedule,
	"scheduleMessageId":       RecordSchedule,
	"scheduleChangeMessageId": RecordSchedule,
	"scheduleEntries":         RecordSchedule,
	"scheduleLastAttemptAt":   RecordSchedule,
	"scheduleLastSuccessAt":   RecordSchedule,
	"announcements":           RecordAnnouncements,
	"cpPanelMessageId":        RecordPanel,
}

func (s PersistentState) toWire() wireState {
	w := wireState{
		ScheduleHash:            s.Schedule.Hash,
		ScheduleMessageID:       nullableString(s.Schedule.MessageID),
		ScheduleChangeMessageID: nullableString(s.Schedule.ChangeMessageID),
		Announcements:           s.Announcements.Seen,
		ScheduleEntries:         s.Schedule.Entries,
		ScheduleLastAttemptAt:   nullableTime(s.Schedule.LastAttemptAt),
		ScheduleLastSuccessAt:   nullableTime(s.Schedule.LastSuccessAt),
		CPPanelMessageID:        nullableString(s.Panel.CPPanelMessageID),
	}
	if w.Announcements == nil {
		w.Announcements = []string{}
	}
	if w.ScheduleEntries == nil {
		w.ScheduleEntries = []schedule.Entry{}
	}
	return w
}

// toState converts the wire form. Unparseable timestamps read as unset so
// one bad value does not discard the rest of the record.
func (w wireState) toState() PersistentState {
	return PersistentState{
		Schedule: schedule.ScheduleState{
			Hash:            w.ScheduleHash,
			MessageID:       deref(w.ScheduleMessageID),
			ChangeMessageID: deref(w.ScheduleChangeMessageID),
			Entries:         w.ScheduleEntries,
			LastAttemptAt:   parseNullableTime(w.ScheduleLastAttemptAt),
			LastSuccessAt:   parseNullableTime(w.ScheduleLastSuccessAt),
		},
		Announcements: announcements.AnnouncementState{Seen: w.Announcements},
		Panel:         PanelState{CPPanelMessageID: deref(w.CPPanelMessageID)},
	}
}

// MarshalJSON writes the flat on-disk layout.
func (s PersistentState) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(s.toWire())
	if err != nil || len(s.extra) == 0 {
		return data, err
	}

	merged := make(map[string]json.RawMessage, len(s.extra)+len(knownKeys))
	for k, v := range s.extra {
		merged[k] = v
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the flat on-disk layout. Missing keys keep defaults.
func (s *PersistentState) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded := w.toState()

	for k, v := range raw {
		if _, ok := knownKeys[k]; ok {
			continue
		}
		if decoded.extra == nil {
			decoded.extra = make(map[string]json.RawMessage)
		}
		decoded.extra[k] = v
	}

	*s = decoded
	return nil
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullableTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	v := t.UTC().Format(timestampLayout)
	return &v
}

func parseNullableTime(v *string) time.Time {
	if v == nil || *v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, *v)
	if err != nil {
		return time.Time{}
	}
	return t
}

package domain

import "time"

// ScheduleState is the schedule watcher's slice of the persisted record.
// Empty IDs and zero times are persisted as null.
type ScheduleState struct {
	Hash            string
	MessageID       string
	ChangeMessageID string
	Entries         []Entry
	LastAttemptAt   time.Time
	LastSuccessAt   time.Time
}

// IsFirstRun reports whether no snapshot has ever been hashed.
func (s ScheduleState) IsFirstRun() bool {
	return s.Hash == ""
}

// HasCache reports whether a previous snapshot is available for fallback.
func (s ScheduleState) HasCache() bool {
	return len(s.Entries) > 0
}

// CachedEntries returns a copy of the stored snapshot.
func (s ScheduleState) CachedEntries() []Entry {
	if len(s.Entries) == 0 {
		return nil
	}
	out := make([]Entry, len(s.Entries))
	copy(out, s.Entries)
	return out
}

// HasSynced reports whether at least one fetch has ever succeeded.
func (s ScheduleState) HasSynced() bool {
	return !s.LastSuccessAt.IsZero()
}

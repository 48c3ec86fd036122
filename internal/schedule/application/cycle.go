package application

import (
	"time"

	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

// cycle accumulates the outcome of one watcher run. Each step receives the
// current value and returns the next one; persisted() turns the final value
// into the record that is written back.
type cycle struct {
	attemptAt time.Time
	previous  domain.ScheduleState

	entries  []domain.Entry
	degraded bool
	fetched  bool

	diff     domain.Diff
	stored   []domain.Entry
	hash     string
	announce bool

	messageID       string
	changeMessageID string
	postedSchedule  bool

	completed bool
}

func newCycle(previous domain.ScheduleState, attemptAt time.Time) cycle {
	return cycle{
		attemptAt:       attemptAt,
		previous:        previous,
		stored:          previous.Entries,
		hash:            previous.Hash,
		messageID:       previous.MessageID,
		changeMessageID: previous.ChangeMessageID,
	}
}

// withFetched records a successful fetch.
func (c cycle) withFetched(entries []domain.Entry) cycle {
	c.entries = entries
	c.fetched = true
	return c
}

// withCache substitutes the cached snapshot after an outage.
// keep is used instead when there is no cache.
func (c cycle) withCache(keep []domain.Entry) cycle {
	c.degraded = true
	if c.previous.HasCache() {
		c.entries = c.previous.CachedEntries()
	} else {
		c.entries = keep
	}
	return c
}

// withHash diffs against the previous snapshot and evaluates the gate.
func (c cycle) withHash() cycle {
	c.diff = domain.DiffEntries(c.previous.Entries, c.entries)
	c.stored = domain.SortEntries(c.entries)
	c.hash = domain.ComputeHash(c.stored)
	c.announce = domain.ShouldAnnounce(c.previous.Hash, c.hash, c.diff)
	return c
}

func (c cycle) firstRun() bool {
	return c.previous.IsFirstRun()
}

func (c cycle) hashChanged() bool {
	return c.previous.Hash != c.hash
}

// persisted returns the schedule record to write. The success timestamp
// only moves when a fetch succeeded and the cycle ran to completion.
func (c cycle) persisted() domain.ScheduleState {
	out := domain.ScheduleState{
		Hash:            c.hash,
		MessageID:       c.messageID,
		ChangeMessageID: c.changeMessageID,
		Entries:         c.stored,
		LastAttemptAt:   c.attemptAt,
		LastSuccessAt:   c.previous.LastSuccessAt,
	}
	if c.fetched && c.completed {
		out.LastSuccessAt = c.attemptAt
	}
	return out
}

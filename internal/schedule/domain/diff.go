package domain

// Change pairs a previous entry with the current entry it matched.
type Change struct {
	Previous Entry
	Current  Entry
}

// Diff classifies the current snapshot against the previous one.
type Diff struct {
	Added     []Entry
	Updated   []Change
	Removed   []Entry
	Unchanged []Entry
}

// HasChanges reports whether anything was added, updated or removed.
func (d Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Updated) > 0 || len(d.Removed) > 0
}

// Counts returns the number of added, updated and removed entries.
func (d Diff) Counts() (added, updated, removed int) {
	return len(d.Added), len(d.Updated), len(d.Removed)
}

// previousIndex maps each candidate key to a FIFO queue of positions in
// the previous snapshot. Entries are claimed at most once.
type previousIndex struct {
	entries []Entry
	queues  map[string][]int
	claimed []bool
}

func newPreviousIndex(previous []Entry) *previousIndex {
	idx := &previousIndex{
		entries: previous,
		queues:  make(map[string][]int, len(previous)*2),
		claimed: make([]bool, len(previous)),
	}
	for i, e := range previous {
		for _, key := range KeyCandidates(e) {
			idx.queues[key] = append(idx.queues[key], i)
		}
	}
	return idx
}

// take returns the first unclaimed previous entry under any of the
// candidate keys of e, trying keys in priority order.
func (idx *previousIndex) take(e Entry) (int, bool) {
	for _, key := range KeyCandidates(e) {
		queue := idx.queues[key]
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			if !idx.claimed[i] {
				idx.queues[key] = queue
				idx.claimed[i] = true
				return i, true
			}
		}
		idx.queues[key] = queue
	}
	return 0, false
}

// DiffEntries computes added, updated, removed and unchanged entries.
func DiffEntries(previous, current []Entry) Diff {
	idx := newPreviousIndex(previous)
	var d Diff

	for _, cur := range current {
		i, ok := idx.take(cur)
		if !ok {
			d.Added = append(d.Added, cur)
			continue
		}
		prev := idx.entries[i]
		if FullKey(prev) != FullKey(cur) {
			d.Updated = append(d.Updated, Change{Previous: prev, Current: cur})
			continue
		}
		d.Unchanged = append(d.Unchanged, cur)
	}

	for i, prev := range idx.entries {
		if !idx.claimed[i] {
			d.Removed = append(d.Removed, prev)
		}
	}

	return d
}

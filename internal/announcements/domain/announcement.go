package domain

// HistoryLimit is the number of seen announcement IDs kept in state.
const HistoryLimit = 30

// Announcement is one item scraped from the news listing.
type Announcement struct {
	ID    string
	Title string
	URL   string
	Date  string
}

// AnnouncementState is the announcements watcher's slice of the persisted record.
type AnnouncementState struct {
	Seen []string // newest first
}

// Unseen returns the items whose IDs are not in the history, in input order.
func (s AnnouncementState) Unseen(items []Announcement) []Announcement {
	seen := make(map[string]struct{}, len(s.Seen))
	for _, id := range s.Seen {
		seen[id] = struct{}{}
	}

	var out []Announcement
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Remember prepends the IDs of items and truncates the history.
func (s AnnouncementState) Remember(items []Announcement) AnnouncementState {
	history := make([]string, 0, len(items)+len(s.Seen))
	for _, item := range items {
		history = append(history, item.ID)
	}
	history = append(history, s.Seen...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	return AnnouncementState{Seen: history}
}

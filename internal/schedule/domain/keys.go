package domain

// FallbackKey identifies an entry by date, time and title.
func FallbackKey(e Entry) string {
	return e.Date + "|" + e.Time + "|" + e.Title
}

// BaseKey is the start timestamp when present, else the fallback key.
func BaseKey(e Entry) string {
	if e.Start != "" {
		return e.Start
	}
	return FallbackKey(e)
}

// FullKey extends the base key with location and lecturer.
// Two matched entries with different full keys count as updated.
func FullKey(e Entry) string {
	return BaseKey(e) + "|" + e.Location + "|" + e.Lecturer
}

// KeyCandidates lists the match keys of an entry in priority order.
func KeyCandidates(e Entry) []string {
	keys := make([]string, 0, 2)
	for _, strategy := range keyStrategies {
		key, ok := strategy(e)
		if !ok {
			continue
		}
		if len(keys) > 0 && keys[len(keys)-1] == key {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

type keyStrategy func(Entry) (string, bool)

var keyStrategies = []keyStrategy{
	func(e Entry) (string, bool) { return e.Start, e.Start != "" },
	func(e Entry) (string, bool) { return FallbackKey(e), true },
}

package state

import (
	"encoding/json"
	"fmt"
)

// Record names. Backends that store records separately use these keys.
const (
	RecordSchedule      = "schedule"
	RecordAnnouncements = "announcements"
	RecordPanel         = "panel"
	RecordExtra         = "extra"
)

// RecordNames lists every record a backend may hold.
var RecordNames = []string{RecordSchedule, RecordAnnouncements, RecordPanel, RecordExtra}

// SplitRecords partitions the flat layout into one JSON object per owner.
// Keys a newer version added end up in the extra record.
func SplitRecords(s PersistentState) (map[string][]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, err
	}

	grouped := make(map[string]map[string]json.RawMessage)
	for key, value := range flat {
		record, ok := knownKeys[key]
		if !ok {
			record = RecordExtra
		}
		if grouped[record] == nil {
			grouped[record] = make(map[string]json.RawMessage)
		}
		grouped[record][key] = value
	}

	out := make(map[string][]byte, len(grouped))
	for record, fields := range grouped {
		payload, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode %s record: %w", record, err)
		}
		out[record] = payload
	}
	return out, nil
}

// JoinRecords merges per-owner records back into one state.
// Missing records leave their fields at defaults.
func JoinRecords(records map[string][]byte) (PersistentState, error) {
	flat := make(map[string]json.RawMessage)
	for _, name := range RecordNames {
		payload, ok := records[name]
		if !ok || len(payload) == 0 {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			return PersistentState{}, fmt.Errorf("decode %s record: %w", name, err)
		}
		for k, v := range fields {
			flat[k] = v
		}
	}
	if len(flat) == 0 {
		return Default(), nil
	}

	data, err := json.Marshal(flat)
	if err != nil {
		return PersistentState{}, err
	}
	var s PersistentState
	if err := json.Unmarshal(data, &s); err != nil {
		return PersistentState{}, err
	}
	return s, nil
}

package state

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps the state in memory as its JSON encoding.
// It is used by tests and by dry runs.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	writes int
}

// NewMemoryStore creates a store seeded with s.
func NewMemoryStore(s PersistentState) *MemoryStore {
	m := &MemoryStore{}
	m.data, _ = json.Marshal(s)
	return m
}

func (m *MemoryStore) Read(_ context.Context) (PersistentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) == 0 {
		return Default(), nil
	}
	var s PersistentState
	if err := json.Unmarshal(m.data, &s); err != nil {
		return PersistentState{}, err
	}
	return s, nil
}

func (m *MemoryStore) Write(_ context.Context, s PersistentState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.writes++
	return nil
}

// Writes returns how many times Write succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

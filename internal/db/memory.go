package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an AlarmStore held in process memory. Values are kept
// encoded so callers never share slices with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
	order []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (m *MemoryStore) GetAlarm(_ context.Context, id string) (*AlarmRecord, error) {
	m.mu.RLock()
	data, ok := m.items[Key(id)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var rec AlarmRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode alarm %s: %w", id, err)
	}
	return &rec, nil
}

func (m *MemoryStore) GetAllAlarms(_ context.Context) ([]AlarmRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	alarms := make([]AlarmRecord, 0, len(m.order))
	for _, key := range m.order {
		var rec AlarmRecord
		if err := json.Unmarshal(m.items[key], &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		alarms = append(alarms, rec)
	}
	return alarms, nil
}

func (m *MemoryStore) SaveAlarm(_ context.Context, rec AlarmRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode alarm %s: %w", rec.ID, err)
	}
	key := Key(rec.ID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		m.order = append(m.order, key)
	}
	m.items[key] = data
	return nil
}

func (m *MemoryStore) DeleteAlarm(_ context.Context, id string) error {
	key := Key(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return nil
	}
	delete(m.items, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string][]byte)
	m.order = nil
	return nil
}

var _ AlarmStore = (*MemoryStore)(nil)

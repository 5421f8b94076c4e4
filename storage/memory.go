package storage

import (
	"context"
	"maps"
	"sync"
)

// memoryStorage implements Storage with in-memory state. Contents are lost
// when the process terminates - suitable for development and testing.
type memoryStorage struct {
	mu     sync.RWMutex
	states map[string]any
}

// NewMemory creates a Storage backed by process memory. GetPersistentStates
// returns nil until the first save, matching a fresh on-disk store.
func NewMemory() Storage {
	return &memoryStorage{}
}

func (m *memoryStorage) GetPersistentStates(_ context.Context) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.states == nil {
		return nil, nil
	}
	return maps.Clone(m.states), nil
}

func (m *memoryStorage) SavePersistentStates(_ context.Context, states map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = maps.Clone(states)
	return nil
}

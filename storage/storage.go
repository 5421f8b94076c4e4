// Package storage provides the persistence collaborator used by the hub
// coordinator: a named JSON blob holding the persisted subset of state,
// loaded once at startup and overwritten on every persisted mutation.
//
// Backends register under a name and are resolved via Get, so configuration
// can select a backend as a string. The "memory" backend is pre-registered.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for persistence operations.
var (
	ErrLoadFailed = errors.New("load persistent states failed")
	ErrSaveFailed = errors.New("save persistent states failed")
)

// Storage persists the subset of state selected for persistence.
// Implementations must be safe for concurrent use.
type Storage interface {
	// GetPersistentStates returns the previously saved states, or a nil
	// map if nothing has been saved yet.
	GetPersistentStates(ctx context.Context) (map[string]any, error)

	// SavePersistentStates overwrites the saved states. Callers treat the
	// write as fire-and-forget and only log failures.
	SavePersistentStates(ctx context.Context, states map[string]any) error
}

var (
	backends = map[string]Storage{
		"memory": NewMemory(),
	}
	mutex sync.RWMutex
)

// Get returns a registered storage backend by name.
func Get(name string) (Storage, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	backend, exists := backends[name]
	if !exists {
		return nil, fmt.Errorf("unknown storage backend: %s", name)
	}
	return backend, nil
}

// Register adds or replaces a named storage backend in the global registry.
func Register(name string, backend Storage) {
	mutex.Lock()
	defer mutex.Unlock()

	backends[name] = backend
}

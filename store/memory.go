package store

import (
	"encoding/json"
	"sync"

	"github.com/crosstate/storesync/syncmsg"
)

// MutationHandler applies a mutation payload to the state tree in place.
type MutationHandler func(state map[string]any, payload any)

// ActionHandler resolves an action, typically by committing mutations back
// into the store.
type ActionHandler func(s *Memory, payload any)

// Memory is an in-memory Store keyed by top-level state entries.
//
// Mutation and action handlers are registered by type. Commit applies the
// matching handler under the store lock, then notifies subscribers outside
// it, still synchronously with respect to the caller. Unknown mutation
// types change no state but are still observable, which is what lets a
// relay component see changes it has no local handler for.
type Memory struct {
	mu                sync.Mutex
	state             map[string]any
	mutations         map[string]MutationHandler
	actions           map[string]ActionHandler
	subscribers       []func(rec syncmsg.Record)
	actionSubscribers []func(rec syncmsg.Record)
}

// NewMemory creates a Memory store seeded with initial state. A nil initial
// map yields an empty tree.
func NewMemory(initial map[string]any) *Memory {
	return &Memory{
		state:     cloneState(initial),
		mutations: make(map[string]MutationHandler),
		actions:   make(map[string]ActionHandler),
	}
}

// HandleMutation registers the handler applied when mutationType is
// committed.
func (s *Memory) HandleMutation(mutationType string, fn MutationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations[mutationType] = fn
}

// HandleAction registers the handler run when actionType is dispatched.
func (s *Memory) HandleAction(actionType string, fn ActionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[actionType] = fn
}

func (s *Memory) Subscribe(fn func(rec syncmsg.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Memory) SubscribeAction(fn func(rec syncmsg.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionSubscribers = append(s.actionSubscribers, fn)
}

func (s *Memory) Commit(mutationType string, payload any) {
	s.mu.Lock()
	if mutationType == ReplaceStateMutation {
		if replacement, ok := normalizeState(payload); ok {
			s.state = replacement
		}
	} else if fn, ok := s.mutations[mutationType]; ok {
		fn(s.state, payload)
	}
	subscribers := make([]func(rec syncmsg.Record), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	rec := syncmsg.Record{Type: mutationType, Payload: payload}
	for _, fn := range subscribers {
		fn(rec)
	}
}

func (s *Memory) Dispatch(actionType string, payload any) {
	s.mu.Lock()
	fn := s.actions[actionType]
	subscribers := make([]func(rec syncmsg.Record), len(s.actionSubscribers))
	copy(subscribers, s.actionSubscribers)
	s.mu.Unlock()

	rec := syncmsg.Record{Type: actionType, Payload: payload}
	for _, sub := range subscribers {
		sub(rec)
	}
	if fn != nil {
		fn(s, payload)
	}
}

func (s *Memory) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// normalizeState coerces a replace-state payload into a state map via a
// JSON round trip, so typed snapshots and their wire form behave the same.
func normalizeState(payload any) (map[string]any, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false
	}
	if state == nil {
		state = make(map[string]any)
	}
	return state, true
}

func cloneState(state map[string]any) map[string]any {
	clone := make(map[string]any, len(state))
	for k, v := range state {
		clone[k] = cloneValue(v)
	}
	return clone
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneState(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return v
	}
}

// Package store defines the observable store contract the synchronization
// protocol runs against, plus an in-memory reference implementation.
//
// The protocol never inspects application state beyond top-level keys; it
// only needs to intercept changes and replay them. Stores notify mutation
// subscribers synchronously from inside Commit, so a replayed change
// re-triggers the hooks of the component that committed it before Commit
// returns. Echo suppression depends on this ordering.
package store

import "github.com/crosstate/storesync/syncmsg"

// ReplaceStateMutation is the reserved mutation type that atomically
// overwrites the entire state tree. It exists purely as a bootstrapping
// signal for initial-state sync and is never forwarded by peers.
const ReplaceStateMutation = "vweReplaceState"

// Store is the contract a local store must satisfy to participate in
// synchronization.
type Store interface {
	// Subscribe registers fn to be called synchronously for every
	// committed mutation, including ReplaceStateMutation.
	Subscribe(fn func(rec syncmsg.Record))

	// Commit applies a mutation and notifies subscribers before returning.
	Commit(mutationType string, payload any)

	// Dispatch resolves an action, which may commit zero or more
	// mutations.
	Dispatch(actionType string, payload any)

	// State returns a snapshot of the full state tree. The caller owns the
	// returned map.
	State() map[string]any
}

// ActionSubscriber is the optional capability for intercepting dispatched
// actions. Components check for it once at construction; stores without it
// simply have action sync disabled.
type ActionSubscriber interface {
	// SubscribeAction registers fn to be called synchronously for every
	// dispatched action.
	SubscribeAction(fn func(rec syncmsg.Record))
}

// Package hub implements the coordinator side of the store synchronization
// protocol.
//
// The coordinator runs in the single long-lived privileged context. It owns
// the registry of peer connections, relays every local store change to
// every peer, and applies every peer's change to the local store before
// fanning it out to the other peers. Per-connection echo-tracking lists
// guarantee a change is never relayed back to the connection it came from.
//
// When persistent state keys are configured, the coordinator restores them
// from storage at startup and rewrites the persisted subset after every
// local mutation.
//
// Construction wires everything up:
//
//	st := store.NewMemory(nil)
//	bus := transport.NewBus()
//	coord := hub.New(ctx, st, bus, storage.NewMemory(), config.DefaultSettings())
//
// From then on the coordinator is driven entirely by store subscriptions
// and transport callbacks; there is no run loop to start.
package hub

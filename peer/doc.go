// Package peer implements the peripheral side of the store synchronization
// protocol.
//
// An Agent runs in each peripheral context, one instance per context, each
// with a single connection to the hub. Its local store replica exists and
// may emit changes before the hub has sent the authoritative initial state,
// so the agent buffers locally hooked changes until initialization and
// replays them, in original order, on top of the synced state. The same
// echo-tracking discipline as the hub prevents a change received from the
// hub from being sent back when the local store replays it.
package peer

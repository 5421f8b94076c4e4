// Package syncmsg defines the wire protocol for store synchronization:
// JSON envelopes carrying full-state snapshots, mutations, and actions
// between the hub context and peer contexts.
//
// Every message is an Envelope with a type discriminator and an opaque data
// field. Envelopes without a type do not belong to this protocol and are
// ignored by both sides, which lets the underlying channel be shared with
// unrelated traffic.
package syncmsg

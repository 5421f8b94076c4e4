package peer

import "github.com/crosstate/storesync/observability"

const (
	EventInitialized observability.EventType = "sync.peer.initialized"

	EventMutationSend observability.EventType = "sync.peer.mutation.send"
	EventMutationEcho observability.EventType = "sync.peer.mutation.echo"
	EventActionSend   observability.EventType = "sync.peer.action.send"
	EventActionEcho   observability.EventType = "sync.peer.action.echo"

	EventPendingQueue observability.EventType = "sync.peer.pending.queue"
	EventPendingDrain observability.EventType = "sync.peer.pending.drain"
)

package hub

import "github.com/crosstate/storesync/observability"

const (
	// Connection lifecycle
	EventConnectionOpen   observability.EventType = "sync.connection.open"
	EventConnectionClose  observability.EventType = "sync.connection.close"
	EventConnectionIgnore observability.EventType = "sync.connection.ignore"

	// Relay
	EventMutationRelay observability.EventType = "sync.mutation.relay"
	EventMutationEcho  observability.EventType = "sync.mutation.echo"
	EventActionRelay   observability.EventType = "sync.action.relay"
	EventActionEcho    observability.EventType = "sync.action.echo"

	// State handling
	EventStatePush    observability.EventType = "sync.state.push"
	EventStateRestore observability.EventType = "sync.state.restore"
	EventStatePersist observability.EventType = "sync.state.persist"
)

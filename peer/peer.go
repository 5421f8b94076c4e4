package peer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/crosstate/storesync/config"
	"github.com/crosstate/storesync/observability"
	"github.com/crosstate/storesync/store"
	"github.com/crosstate/storesync/syncmsg"
	"github.com/crosstate/storesync/tracker"
	"github.com/crosstate/storesync/transport"
)

// Agent is the peer side of the synchronization protocol.
type Agent struct {
	store    store.Store
	settings config.Settings

	port       transport.Port
	instanceID string

	actionsEnabled bool

	logger   *slog.Logger
	observer observability.Observer

	ctx context.Context

	mu                sync.Mutex
	initialized       bool
	receivedMutations *tracker.List
	receivedActions   *tracker.List
	pendingMutations  *tracker.Queue
	pendingActions    *tracker.Queue
}

// New creates an Agent, opens its connection to the hub, and subscribes to
// the local store. The connection name is the configured prefix plus a
// random instance identifier; uniqueness is advisory (it only
// disambiguates registry entries), not security-critical.
func New(
	ctx context.Context,
	st store.Store,
	dialer transport.Dialer,
	settings config.Settings,
) (*Agent, error) {
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observer, err := observability.GetObserver(settings.Observer)
	if err != nil {
		logger.Info("observer not registered, events disabled",
			slog.String("observer", settings.Observer))
		observer = observability.NoOpObserver{}
	}

	a := &Agent{
		store:             st,
		settings:          settings,
		instanceID:        ulid.Make().String(),
		logger:            logger,
		observer:          observer,
		ctx:               ctx,
		receivedMutations: tracker.NewMutationList(),
		receivedActions:   tracker.NewActionList(),
		pendingMutations:  &tracker.Queue{},
		pendingActions:    &tracker.Queue{},
	}

	port, err := dialer.Connect(settings.ConnectionName + "_" + a.instanceID)
	if err != nil {
		return nil, err
	}
	a.port = port

	port.OnMessage(a.onMessage)

	if settings.SyncActions {
		if as, ok := st.(store.ActionSubscriber); ok {
			a.actionsEnabled = true
			as.SubscribeAction(a.hookAction)
		} else {
			logger.Info("store does not support action subscription, action sync disabled")
		}
	}

	st.Subscribe(a.hookMutation)

	return a, nil
}

// InstanceID returns the agent's random identifier.
func (a *Agent) InstanceID() string {
	return a.instanceID
}

// ConnectionName returns the full channel identity used for the hub
// connection.
func (a *Agent) ConnectionName() string {
	return a.settings.ConnectionName + "_" + a.instanceID
}

// Initialized reports whether the initial-state sync has been applied.
func (a *Agent) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Close tears down the hub connection. Local store changes made afterwards
// are no longer synchronized.
func (a *Agent) Close() error {
	return a.port.Close()
}

// hookMutation runs synchronously for every local store mutation.
func (a *Agent) hookMutation(rec syncmsg.Record) {
	// The full-state replace is purely a bootstrapping signal and must
	// never be re-sent.
	if rec.Type == store.ReplaceStateMutation {
		return
	}
	if a.settings.IgnoresMutation(rec.Type) {
		return
	}

	a.mu.Lock()
	if !a.initialized {
		a.pendingMutations.Push(rec)
		a.mu.Unlock()
		a.emit(EventPendingQueue, observability.LevelVerbose, map[string]any{
			"type": rec.Type,
		})
		return
	}
	if a.receivedMutations.Len() == 0 {
		// Nothing outstanding from the hub: necessarily local in origin.
		a.mu.Unlock()
		a.sendMutation(rec)
		return
	}
	echo := a.receivedMutations.TakeMatch(rec)
	a.mu.Unlock()

	if echo {
		a.emit(EventMutationEcho, observability.LevelVerbose, map[string]any{
			"type": rec.Type,
		})
		return
	}
	a.sendMutation(rec)
}

// hookAction mirrors hookMutation for dispatched actions, matching echoes
// on type only and with no reserved-type exception.
func (a *Agent) hookAction(rec syncmsg.Record) {
	if a.settings.IgnoresAction(rec.Type) {
		return
	}

	a.mu.Lock()
	if !a.initialized {
		a.pendingActions.Push(rec)
		a.mu.Unlock()
		a.emit(EventPendingQueue, observability.LevelVerbose, map[string]any{
			"type": rec.Type,
		})
		return
	}
	if a.receivedActions.Len() == 0 {
		a.mu.Unlock()
		a.sendAction(rec)
		return
	}
	echo := a.receivedActions.TakeMatch(rec)
	a.mu.Unlock()

	if echo {
		a.emit(EventActionEcho, observability.LevelVerbose, map[string]any{
			"type": rec.Type,
		})
		return
	}
	a.sendAction(rec)
}

func (a *Agent) onMessage(env syncmsg.Envelope) {
	if !env.Valid() {
		return
	}

	switch env.Type {
	case syncmsg.TypeState:
		a.onInitialState(env)

	case syncmsg.TypeMutation:
		rec, err := env.Record()
		if err != nil {
			return
		}
		a.mu.Lock()
		if !a.initialized {
			a.mu.Unlock()
			a.logger.Warn("mutation received before initial sync, dropped",
				slog.String("type", rec.Type))
			return
		}
		a.receivedMutations.Add(rec)
		a.mu.Unlock()
		a.store.Commit(rec.Type, rec.Payload)

	case syncmsg.TypeAction:
		rec, err := env.Record()
		if err != nil {
			return
		}
		a.mu.Lock()
		if !a.initialized {
			a.mu.Unlock()
			a.logger.Warn("action received before initial sync, dropped",
				slog.String("type", rec.Type))
			return
		}
		a.receivedActions.Add(rec)
		a.mu.Unlock()
		a.store.Dispatch(rec.Type, rec.Payload)

	default:
		// Unrecognized types are unrelated channel traffic.
	}
}

// onInitialState replaces the local state wholesale, marks the agent
// initialized, and replays the mutations hooked before sync in their
// original order. Replayed records route through the received list so the
// hook's own echo check keeps them off the wire. Pending actions are
// intentionally not drained; see the package tests pinning this behavior.
func (a *Agent) onInitialState(env syncmsg.Envelope) {
	states, err := env.State()
	if err != nil {
		return
	}

	a.store.Commit(store.ReplaceStateMutation, states)

	a.mu.Lock()
	a.initialized = true
	pending := a.pendingMutations.Drain()
	a.mu.Unlock()

	a.emit(EventInitialized, observability.LevelInfo, map[string]any{
		"pending_mutations": len(pending),
	})

	for _, rec := range pending {
		a.mu.Lock()
		a.receivedMutations.Add(rec)
		a.mu.Unlock()
		a.store.Commit(rec.Type, rec.Payload)
	}

	if len(pending) > 0 {
		a.emit(EventPendingDrain, observability.LevelVerbose, map[string]any{
			"count": len(pending),
		})
	}
}

// sendMutation wraps the record in a mutation-sync envelope and posts it.
// No retry, no delivery confirmation.
func (a *Agent) sendMutation(rec syncmsg.Record) {
	if err := a.port.PostMessage(syncmsg.NewMutation(rec)); err != nil {
		a.logger.Warn("failed to send mutation",
			slog.String("type", rec.Type),
			slog.String("error", err.Error()))
		return
	}
	a.emit(EventMutationSend, observability.LevelVerbose, map[string]any{
		"type": rec.Type,
	})
}

func (a *Agent) sendAction(rec syncmsg.Record) {
	if err := a.port.PostMessage(syncmsg.NewAction(rec)); err != nil {
		a.logger.Warn("failed to send action",
			slog.String("type", rec.Type),
			slog.String("error", err.Error()))
		return
	}
	a.emit(EventActionSend, observability.LevelVerbose, map[string]any{
		"type": rec.Type,
	})
}

func (a *Agent) emit(eventType observability.EventType, level observability.Level, data map[string]any) {
	a.observer.OnEvent(a.ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "peer",
		Data:      data,
	})
}

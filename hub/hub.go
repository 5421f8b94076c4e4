package hub

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/crosstate/storesync/config"
	"github.com/crosstate/storesync/observability"
	"github.com/crosstate/storesync/storage"
	"github.com/crosstate/storesync/store"
	"github.com/crosstate/storesync/syncmsg"
	"github.com/crosstate/storesync/tracker"
	"github.com/crosstate/storesync/transport"
)

// Connection is one peer's channel from the coordinator's perspective. The
// tracking lists hold records received from that peer and not yet observed
// as local store events; both lists are guarded by the coordinator mutex.
type Connection struct {
	port              transport.Port
	receivedMutations *tracker.List
	receivedActions   *tracker.List
}

// Name returns the connection's channel identity.
func (c *Connection) Name() string {
	return c.port.Name()
}

// Coordinator is the hub side of the synchronization protocol.
type Coordinator struct {
	store    store.Store
	storage  storage.Storage
	settings config.Settings

	actionsEnabled bool

	logger   *slog.Logger
	observer observability.Observer
	metrics  *Metrics

	ctx context.Context

	mu          sync.Mutex
	connections []*Connection
}

// New creates a Coordinator bound to the local store and listener. It
// subscribes to store changes, starts accepting connections, and, when
// persistent state keys are configured, kicks off the asynchronous restore
// from storage. The coordinator is fully operational while that restore is
// pending.
func New(
	ctx context.Context,
	st store.Store,
	listener transport.Listener,
	stg storage.Storage,
	settings config.Settings,
) *Coordinator {
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

	c := &Coordinator{
		store:    st,
		storage:  stg,
		settings: settings,
		logger:   logger,
		observer: observer,
		metrics:  NewMetrics(),
		ctx:      ctx,
	}

	// Resolve the action-subscription capability once. A store without it
	// silently loses action sync, never the whole protocol.
	if settings.SyncActions {
		if as, ok := st.(store.ActionSubscriber); ok {
			c.actionsEnabled = true
			as.SubscribeAction(c.hookAction)
		} else {
			logger.Info("store does not support action subscription, action sync disabled")
		}
	}

	st.Subscribe(c.hookMutation)
	listener.HandleConnection(c.onConnection)

	if settings.Persists() {
		if stg == nil {
			logger.Info("persistent states configured without storage, persistence disabled")
		} else {
			go c.restorePersistentStates()
		}
	}

	return c
}

// Metrics returns a snapshot of the coordinator's counters.
func (c *Coordinator) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Connections returns the names of the currently registered connections in
// insertion order.
func (c *Coordinator) Connections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.connections))
	for i, conn := range c.connections {
		names[i] = conn.Name()
	}
	return names
}

func (c *Coordinator) onConnection(port transport.Port) {
	if !c.belongsToProtocol(port.Name()) {
		c.emit(EventConnectionIgnore, observability.LevelVerbose, map[string]any{
			"connection": port.Name(),
		})
		return
	}

	conn := &Connection{
		port:              port,
		receivedMutations: tracker.NewMutationList(),
		receivedActions:   tracker.NewActionList(),
	}

	port.OnDisconnect(func() {
		c.removeConnection(port.Name())
	})
	port.OnMessage(func(env syncmsg.Envelope) {
		c.onMessage(conn, env)
	})

	c.mu.Lock()
	c.connections = append(c.connections, conn)
	c.mu.Unlock()

	c.metrics.RecordConnection(1)
	c.emit(EventConnectionOpen, observability.LevelInfo, map[string]any{
		"connection": conn.Name(),
	})

	c.sendInitialState(conn)
}

func (c *Coordinator) removeConnection(name string) {
	c.mu.Lock()
	kept := c.connections[:0]
	removed := 0
	for _, conn := range c.connections {
		if conn.Name() == name {
			removed++
			continue
		}
		kept = append(kept, conn)
	}
	c.connections = kept
	c.mu.Unlock()

	if removed == 0 {
		return
	}

	c.metrics.RecordConnection(-removed)
	c.emit(EventConnectionClose, observability.LevelInfo, map[string]any{
		"connection": name,
	})
}

// sendInitialState pushes the full current state to a connection. Send
// failures are logged, never propagated; the peer will simply stay
// uninitialized until it reconnects.
func (c *Coordinator) sendInitialState(conn *Connection) {
	if err := conn.port.PostMessage(syncmsg.NewState(c.store.State())); err != nil {
		c.logger.Warn("failed to send initial state",
			slog.String("connection", conn.Name()),
			slog.String("error", err.Error()))
		return
	}
	c.emit(EventStatePush, observability.LevelVerbose, map[string]any{
		"connection": conn.Name(),
	})
}

// hookMutation runs synchronously for every local store mutation: relay to
// every non-origin connection, then persist the selected state subset.
// Persistence is not gated by the ignore list or by echo status.
func (c *Coordinator) hookMutation(rec syncmsg.Record) {
	if !c.settings.IgnoresMutation(rec.Type) {
		c.relay(rec, true)
	}
	if c.settings.Persists() && c.storage != nil {
		c.persistState()
	}
}

// hookAction mirrors hookMutation for dispatched actions, with type-only
// echo matching and no persistence step.
func (c *Coordinator) hookAction(rec syncmsg.Record) {
	if c.settings.IgnoresAction(rec.Type) {
		return
	}
	c.relay(rec, false)
}

func (c *Coordinator) relay(rec syncmsg.Record, mutation bool) {
	c.mu.Lock()
	connections := make([]*Connection, len(c.connections))
	copy(connections, c.connections)
	c.mu.Unlock()

	for _, conn := range connections {
		if !c.belongsToProtocol(conn.Name()) {
			continue
		}

		c.mu.Lock()
		list := conn.receivedActions
		if mutation {
			list = conn.receivedMutations
		}
		echo := list.TakeMatch(rec)
		c.mu.Unlock()

		if echo {
			// This connection is the origin of the change.
			c.metrics.RecordEchoSuppressed(1)
			event := EventActionEcho
			if mutation {
				event = EventMutationEcho
			}
			c.emit(event, observability.LevelVerbose, map[string]any{
				"connection": conn.Name(),
				"type":       rec.Type,
			})
			continue
		}

		env := syncmsg.NewAction(rec)
		if mutation {
			env = syncmsg.NewMutation(rec)
		}
		if err := conn.port.PostMessage(env); err != nil {
			c.logger.Warn("failed to relay change",
				slog.String("connection", conn.Name()),
				slog.String("type", rec.Type),
				slog.String("error", err.Error()))
			continue
		}

		event := EventActionRelay
		if mutation {
			event = EventMutationRelay
			c.metrics.RecordMutationRelayed(1)
		} else {
			c.metrics.RecordActionRelayed(1)
		}
		c.emit(event, observability.LevelVerbose, map[string]any{
			"connection": conn.Name(),
			"type":       rec.Type,
		})
	}
}

func (c *Coordinator) onMessage(conn *Connection, env syncmsg.Envelope) {
	if !env.Valid() {
		return
	}

	switch env.Type {
	case syncmsg.TypeMutation:
		rec, err := env.Record()
		if err != nil {
			return
		}
		c.metrics.RecordMessageReceived(1)
		c.mu.Lock()
		conn.receivedMutations.Add(rec)
		c.mu.Unlock()
		// Committing replays the change locally, which re-enters
		// hookMutation and consumes the entry just appended, so the
		// origin is never sent its own change back.
		c.store.Commit(rec.Type, rec.Payload)

	case syncmsg.TypeAction:
		rec, err := env.Record()
		if err != nil {
			return
		}
		c.metrics.RecordMessageReceived(1)
		c.mu.Lock()
		conn.receivedActions.Add(rec)
		c.mu.Unlock()
		c.store.Dispatch(rec.Type, rec.Payload)

	default:
		// State sync is only ever sent by the hub; anything else is
		// unrecognized. Both are ignored.
	}
}

// restorePersistentStates loads the persisted blob, merges the recognized
// keys over the current state, and pushes the result to every connection
// registered by the time the load resolves.
func (c *Coordinator) restorePersistentStates() {
	states, err := c.storage.GetPersistentStates(c.ctx)
	if err != nil {
		c.logger.Warn("failed to load persistent states",
			slog.String("error", err.Error()))
		return
	}
	if states == nil {
		return
	}

	merged := c.store.State()
	restored := make([]string, 0, len(c.settings.PersistentStates))
	for _, key := range c.settings.PersistentStates {
		if value, ok := states[key]; ok {
			merged[key] = value
			restored = append(restored, key)
		}
	}

	c.store.Commit(store.ReplaceStateMutation, merged)
	c.emit(EventStateRestore, observability.LevelInfo, map[string]any{
		"keys": restored,
	})

	// Peers may have connected before the load resolved; resend so they
	// observe the restored state.
	c.mu.Lock()
	connections := make([]*Connection, len(c.connections))
	copy(connections, c.connections)
	c.mu.Unlock()

	for _, conn := range connections {
		c.sendInitialState(conn)
	}
}

func (c *Coordinator) persistState() {
	states := c.store.State()
	filtered := make(map[string]any, len(c.settings.PersistentStates))
	for _, key := range c.settings.PersistentStates {
		if value, ok := states[key]; ok {
			filtered[key] = value
		}
	}

	if err := c.storage.SavePersistentStates(c.ctx, filtered); err != nil {
		c.logger.Warn("failed to save persistent states",
			slog.String("error", err.Error()))
		return
	}
	c.metrics.RecordStatePersisted(1)
	c.emit(EventStatePersist, observability.LevelVerbose, map[string]any{
		"keys": c.settings.PersistentStates,
	})
}

func (c *Coordinator) belongsToProtocol(name string) bool {
	return strings.Contains(name, c.settings.ConnectionName)
}

func (c *Coordinator) emit(eventType observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(c.ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "hub",
		Data:      data,
	})
}

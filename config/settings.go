// Package config defines the process-wide settings shared by the hub
// coordinator and peer agents. Settings are supplied once at construction
// and treated as immutable afterwards.
package config

import (
	"log/slog"
	"slices"
)

// Settings configures one synchronization participant.
//
// ConnectionName doubles as the protocol marker: peer connection names are
// built from it, and the hub ignores any connection whose name does not
// contain it, so the channel can be shared with unrelated traffic.
type Settings struct {
	// ConnectionName is the prefix for peer channel identity and the
	// marker that validates a connection as belonging to this protocol.
	ConnectionName string `json:"connection_name"`

	// SyncActions enables action interception. It is disabled silently at
	// construction when the store does not support action subscription.
	SyncActions bool `json:"sync_actions"`

	// IgnoredMutations lists mutation types never propagated in either
	// direction.
	IgnoredMutations []string `json:"ignored_mutations"`

	// IgnoredActions lists action types never propagated in either
	// direction.
	IgnoredActions []string `json:"ignored_actions"`

	// PersistentStates lists top-level state keys persisted to storage and
	// restored at hub startup. Empty disables persistence.
	PersistentStates []string `json:"persistent_states"`

	// Observer names the observability observer to resolve via the
	// registry ("noop", "slog", or a custom registration).
	Observer string `json:"observer"`

	// Logger receives operational log records. Defaults to slog.Default().
	Logger *slog.Logger `json:"-"`
}

// DefaultSettings returns Settings with sensible defaults: action sync on,
// nothing ignored, persistence off.
func DefaultSettings() Settings {
	return Settings{
		ConnectionName: "storesync",
		SyncActions:    true,
		Observer:       "noop",
		Logger:         slog.Default(),
	}
}

func (s *Settings) Merge(source *Settings) {
	if source.ConnectionName != "" {
		s.ConnectionName = source.ConnectionName
	}

	if source.SyncActions {
		s.SyncActions = source.SyncActions
	}

	if len(source.IgnoredMutations) > 0 {
		s.IgnoredMutations = source.IgnoredMutations
	}

	if len(source.IgnoredActions) > 0 {
		s.IgnoredActions = source.IgnoredActions
	}

	if len(source.PersistentStates) > 0 {
		s.PersistentStates = source.PersistentStates
	}

	if source.Observer != "" {
		s.Observer = source.Observer
	}

	if source.Logger != nil {
		s.Logger = source.Logger
	}
}

// IgnoresMutation reports whether mutationType is excluded from sync.
func (s Settings) IgnoresMutation(mutationType string) bool {
	return slices.Contains(s.IgnoredMutations, mutationType)
}

// IgnoresAction reports whether actionType is excluded from sync.
func (s Settings) IgnoresAction(actionType string) bool {
	return slices.Contains(s.IgnoredActions, actionType)
}

// Persists reports whether any state keys are selected for persistence.
func (s Settings) Persists() bool {
	return len(s.PersistentStates) > 0
}

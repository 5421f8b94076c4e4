package syncmsg

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Type string

const (
	// TypeState carries a full state snapshot, hub to peer only.
	TypeState Type = "@@STORE_SYNC_STATE"
	// TypeMutation carries a single mutation record, either direction.
	TypeMutation Type = "@@STORE_SYNC_MUTATION"
	// TypeAction carries a single action record, either direction.
	TypeAction Type = "@@STORE_SYNC_ACTION"
)

// Record is a change record: a named mutation or action with an opaque
// payload. Payloads must survive structured (JSON) serialization; callers
// strip non-serializable fragments before a record reaches the protocol.
type Record struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Key returns a comparison key combining the record type with the canonical
// JSON encoding of the payload. encoding/json sorts map keys, so two deeply
// equal payloads produce the same key on both sides of the serialization
// boundary.
func (r Record) Key() string {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return r.Type + ":!" + err.Error()
	}
	return r.Type + ":" + string(payload)
}

func (r Record) String() string {
	return fmt.Sprintf("Record{Type: %s}", r.Type)
}

// Envelope is the unit of exchange over a transport channel.
type Envelope struct {
	ID   string `json:"id,omitempty"`
	Type Type   `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Valid reports whether the envelope belongs to this protocol. Envelopes
// lacking a type are unrelated channel traffic.
func (e Envelope) Valid() bool {
	return e.Type != ""
}

// Record decodes the envelope data into a change record. The data may be a
// Record produced locally or the map form it takes after crossing the
// serialization boundary; both decode through JSON.
func (e Envelope) Record() (Record, error) {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// State decodes the envelope data into a full state snapshot.
func (e Envelope) State() (map[string]any, error) {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

// NewState builds a full-state sync envelope.
func NewState(state map[string]any) Envelope {
	return Envelope{ID: generateID(), Type: TypeState, Data: state}
}

// NewMutation builds a mutation sync envelope.
func NewMutation(rec Record) Envelope {
	return Envelope{ID: generateID(), Type: TypeMutation, Data: rec}
}

// NewAction builds an action sync envelope.
func NewAction(rec Record) Envelope {
	return Envelope{ID: generateID(), Type: TypeAction, Data: rec}
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

package syncmsg_test

import (
	"encoding/json"
	"testing"

	"github.com/crosstate/storesync/syncmsg"
)

func TestRecord_Key_StableAcrossSerialization(t *testing.T) {
	local := syncmsg.Record{Type: "set", Payload: map[string]any{"key": "a", "value": float64(1)}}

	raw, err := json.Marshal(local)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var wire syncmsg.Record
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if local.Key() != wire.Key() {
		t.Errorf("Key() differs across serialization: %q vs %q", local.Key(), wire.Key())
	}
}

func TestRecord_Key_DistinguishesPayloads(t *testing.T) {
	a := syncmsg.Record{Type: "x", Payload: float64(1)}
	b := syncmsg.Record{Type: "x", Payload: float64(2)}

	if a.Key() == b.Key() {
		t.Error("records with different payloads produced the same key")
	}
}

func TestEnvelope_Valid(t *testing.T) {
	if (syncmsg.Envelope{}).Valid() {
		t.Error("envelope without a type should not be valid")
	}
	if !syncmsg.NewMutation(syncmsg.Record{Type: "inc"}).Valid() {
		t.Error("mutation envelope should be valid")
	}
}

func TestEnvelope_Record_FromWireForm(t *testing.T) {
	env := syncmsg.NewMutation(syncmsg.Record{Type: "inc", Payload: 5})

	// Round-trip the whole envelope as a transport would.
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var wire syncmsg.Envelope
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	rec, err := wire.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.Type != "inc" {
		t.Errorf("Record().Type = %q, want %q", rec.Type, "inc")
	}
	if rec.Payload != float64(5) {
		t.Errorf("Record().Payload = %v, want 5", rec.Payload)
	}
}

func TestEnvelope_State(t *testing.T) {
	env := syncmsg.NewState(map[string]any{"counter": 5})

	state, err := env.State()
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state["counter"] != float64(5) {
		t.Errorf("state[counter] = %v, want 5", state["counter"])
	}
	if env.Type != syncmsg.TypeState {
		t.Errorf("Type = %q, want %q", env.Type, syncmsg.TypeState)
	}
}

func TestEnvelope_UniqueIDs(t *testing.T) {
	a := syncmsg.NewMutation(syncmsg.Record{Type: "inc"})
	b := syncmsg.NewMutation(syncmsg.Record{Type: "inc"})

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("envelope ids should be unique and non-empty, got %q and %q", a.ID, b.ID)
	}
}

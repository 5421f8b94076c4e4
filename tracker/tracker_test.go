package tracker_test

import (
	"testing"

	"github.com/crosstate/storesync/syncmsg"
	"github.com/crosstate/storesync/tracker"
)

func TestMutationList_FirstMatchRemove(t *testing.T) {
	l := tracker.NewMutationList()
	l.Add(syncmsg.Record{Type: "inc", Payload: float64(1)})
	l.Add(syncmsg.Record{Type: "inc", Payload: float64(1)})

	if !l.TakeMatch(syncmsg.Record{Type: "inc", Payload: float64(1)}) {
		t.Fatal("TakeMatch() = false, want match")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (multiset removes one occurrence per match)", l.Len())
	}
	if !l.TakeMatch(syncmsg.Record{Type: "inc", Payload: float64(1)}) {
		t.Fatal("second TakeMatch() = false, want match")
	}
	if l.TakeMatch(syncmsg.Record{Type: "inc", Payload: float64(1)}) {
		t.Error("third TakeMatch() = true, want no match on empty list")
	}
}

func TestMutationList_PayloadDistinguishes(t *testing.T) {
	l := tracker.NewMutationList()
	l.Add(syncmsg.Record{Type: "x", Payload: float64(1)})

	if l.TakeMatch(syncmsg.Record{Type: "x", Payload: float64(2)}) {
		t.Error("TakeMatch() matched a record with a different payload")
	}
	if !l.TakeMatch(syncmsg.Record{Type: "x", Payload: float64(1)}) {
		t.Error("TakeMatch() missed the record with the equal payload")
	}
}

func TestMutationList_DeepEqualPayload(t *testing.T) {
	l := tracker.NewMutationList()
	l.Add(syncmsg.Record{Type: "set", Payload: map[string]any{"a": float64(1), "b": "x"}})

	// Same content, independently built map.
	if !l.TakeMatch(syncmsg.Record{Type: "set", Payload: map[string]any{"b": "x", "a": float64(1)}}) {
		t.Error("TakeMatch() should match deeply equal payloads regardless of construction order")
	}
}

func TestActionList_TypeOnlyMatch(t *testing.T) {
	l := tracker.NewActionList()
	l.Add(syncmsg.Record{Type: "fetch", Payload: float64(1)})

	// Actions match on type alone; the payload is intentionally ignored.
	if !l.TakeMatch(syncmsg.Record{Type: "fetch", Payload: float64(99)}) {
		t.Error("TakeMatch() should match actions on type only")
	}
	if l.TakeMatch(syncmsg.Record{Type: "other"}) {
		t.Error("TakeMatch() matched a different action type")
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := &tracker.Queue{}
	q.Push(syncmsg.Record{Type: "a"})
	q.Push(syncmsg.Record{Type: "b"})
	q.Push(syncmsg.Record{Type: "c"})

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	records := q.Drain()
	want := []string{"a", "b", "c"}
	if len(records) != len(want) {
		t.Fatalf("Drain() returned %d records, want %d", len(records), len(want))
	}
	for i, typ := range want {
		if records[i].Type != typ {
			t.Errorf("Drain()[%d].Type = %q, want %q", i, records[i].Type, typ)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() after Drain() = %d, want 0", q.Len())
	}
	if drained := q.Drain(); len(drained) != 0 {
		t.Errorf("second Drain() returned %d records, want 0", len(drained))
	}
}

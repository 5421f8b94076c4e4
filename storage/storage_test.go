package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crosstate/storesync/storage"
)

func TestMemory_NilBeforeFirstSave(t *testing.T) {
	s := storage.NewMemory()

	states, err := s.GetPersistentStates(context.Background())
	if err != nil {
		t.Fatalf("GetPersistentStates() error = %v", err)
	}
	if states != nil {
		t.Errorf("GetPersistentStates() = %v, want nil before first save", states)
	}
}

func TestMemory_SaveThenGet(t *testing.T) {
	s := storage.NewMemory()
	ctx := context.Background()

	if err := s.SavePersistentStates(ctx, map[string]any{"counter": 5}); err != nil {
		t.Fatalf("SavePersistentStates() error = %v", err)
	}

	states, err := s.GetPersistentStates(ctx)
	if err != nil {
		t.Fatalf("GetPersistentStates() error = %v", err)
	}
	if states["counter"] != 5 {
		t.Errorf("counter = %v, want 5", states["counter"])
	}
}

func TestFile_NilWhenMissing(t *testing.T) {
	s := storage.NewFile(filepath.Join(t.TempDir(), "states.json"))

	states, err := s.GetPersistentStates(context.Background())
	if err != nil {
		t.Fatalf("GetPersistentStates() error = %v", err)
	}
	if states != nil {
		t.Errorf("GetPersistentStates() = %v, want nil for a missing file", states)
	}
}

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "states.json")
	s := storage.NewFile(path)
	ctx := context.Background()

	saved := map[string]any{"counter": float64(5), "tags": []any{"a", "b"}}
	if err := s.SavePersistentStates(ctx, saved); err != nil {
		t.Fatalf("SavePersistentStates() error = %v", err)
	}

	// A fresh instance must read what the first one wrote.
	states, err := storage.NewFile(path).GetPersistentStates(ctx)
	if err != nil {
		t.Fatalf("GetPersistentStates() error = %v", err)
	}
	if states["counter"] != float64(5) {
		t.Errorf("counter = %v, want 5", states["counter"])
	}
	tags, ok := states["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("tags = %v, want [a b]", states["tags"])
	}
}

func TestFile_CorruptBlobFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := storage.NewFile(path).GetPersistentStates(context.Background())
	if err == nil {
		t.Error("GetPersistentStates() should fail on a corrupt blob")
	}
}

func TestRegistry(t *testing.T) {
	if _, err := storage.Get("memory"); err != nil {
		t.Errorf("Get(memory) error = %v, want pre-registered backend", err)
	}
	if _, err := storage.Get("nonexistent"); err == nil {
		t.Error("Get(nonexistent) should fail")
	}

	custom := storage.NewMemory()
	storage.Register("test-custom", custom)
	got, err := storage.Get("test-custom")
	if err != nil {
		t.Fatalf("Get(test-custom) error = %v", err)
	}
	if got != custom {
		t.Error("Get(test-custom) returned a different backend")
	}
}

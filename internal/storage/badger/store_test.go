package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/oaspractice/internal/storage"
)

func TestStore_InMemory(t *testing.T) {
	store, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Get(ctx, "progress"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	if err := store.Put(ctx, "progress", []byte(`{"schema_version":1}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, "progress")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"schema_version":1}` {
		t.Errorf("Get() = %s", got)
	}
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Put(ctx, "progress", []byte("kept")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	store.Close()

	reopened, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "progress")
	if err != nil || string(got) != "kept" {
		t.Errorf("Get() = %q, %v", got, err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open() without path should fail")
	}
}

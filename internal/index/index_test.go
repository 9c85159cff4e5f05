package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gitkv-project/gitkv/internal/record"
)

func TestUpsertAndKeys(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "idx.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	r := record.New("a", "1", 10)
	if err := idx.Upsert(ctx, "3f", r); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	keys, err := idx.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "a" {
		t.Fatalf("expected [a], got %v", keys)
	}
}

func TestRemove(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "idx.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	r := record.New("a", "1", 10)
	if err := idx.Upsert(ctx, "3f", r); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	keys, err := idx.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty after remove, got %v", keys)
	}
}

func TestRebuildReplacesMirror(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "idx.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	if err := idx.Upsert(ctx, "3f", record.New("stale", "v", 1)); err != nil {
		t.Fatalf("seed Upsert: %v", err)
	}

	live := record.New("fresh", "v", 2)
	tombstoned := record.New("gone", "v", 3)
	tombstoned.Delete(4)

	err = idx.Rebuild(ctx, map[string][]*record.Record{
		"3f": {live, tombstoned},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	keys, err := idx.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "fresh" {
		t.Fatalf("expected only [fresh] after rebuild, got %v", keys)
	}
}

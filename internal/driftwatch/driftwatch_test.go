package driftwatch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestExternalWriteTriggersDrift(t *testing.T) {
	dir := t.TempDir()
	var count atomic.Int32

	w, err := New(dir, func(reason string) { count.Add(1) }, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "3f.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if count.Load() == 0 {
		t.Fatalf("expected drift trigger for external write")
	}
}

func TestIgnoredOwnWriteDoesNotTrigger(t *testing.T) {
	dir := t.TempDir()
	var count atomic.Int32

	w, err := New(dir, func(reason string) { count.Add(1) }, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "3f.json")
	w.IgnoreOwnWrite(path)
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if count.Load() != 0 {
		t.Fatalf("expected self-write to be suppressed, got %d triggers", count.Load())
	}
}

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSyncer struct {
	mu      sync.Mutex
	reasons []string
	calls   atomic.Int32
}

func (f *fakeSyncer) Sync(ctx context.Context, reason string) error {
	f.mu.Lock()
	f.reasons = append(f.reasons, reason)
	f.mu.Unlock()
	f.calls.Add(1)
	return nil
}

func (f *fakeSyncer) count() int {
	return int(f.calls.Load())
}

func TestRapidMutationsCoalesceToOneSync(t *testing.T) {
	fs := &fakeSyncer{}
	s := New(fs, Config{AutoSync: true, SyncOnChange: true, Debounce: 30 * time.Millisecond})
	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 5; i++ {
		s.OnMutation("set")
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if fs.count() != 1 {
		t.Fatalf("expected exactly one coalesced sync, got %d", fs.count())
	}
}

func TestOnMutationNoopWhenDisabled(t *testing.T) {
	fs := &fakeSyncer{}
	s := New(fs, Config{AutoSync: false, SyncOnChange: true, Debounce: 10 * time.Millisecond})
	s.Start(context.Background())
	defer s.Stop()

	s.OnMutation("set")
	time.Sleep(50 * time.Millisecond)

	if fs.count() != 0 {
		t.Fatalf("expected no sync when autoSync disabled, got %d", fs.count())
	}
}

func TestIntervalTimerIdleWhenDisabled(t *testing.T) {
	fs := &fakeSyncer{}
	s := New(fs, Config{AutoSync: true, SyncIntervalMinutes: 0, Debounce: 10 * time.Millisecond})
	// SyncIntervalMinutes doesn't support sub-minute granularity, so this
	// only verifies that the interval timer doesn't fire when disabled (0);
	// the enabled case is not exercised here.
	s.Start(context.Background())
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)
	if fs.count() != 0 {
		t.Fatalf("expected no interval sync when SyncIntervalMinutes=0, got %d", fs.count())
	}
}

func TestReconfigureCancelsPendingDebounce(t *testing.T) {
	fs := &fakeSyncer{}
	s := New(fs, Config{AutoSync: true, SyncOnChange: true, Debounce: 200 * time.Millisecond})
	s.Start(context.Background())
	defer s.Stop()

	s.OnMutation("set")
	s.Reconfigure(Config{AutoSync: true, SyncOnChange: true, Debounce: 200 * time.Millisecond})

	time.Sleep(250 * time.Millisecond)
	if fs.count() != 0 {
		t.Fatalf("expected reconfigure to cancel the pending debounce, got %d calls", fs.count())
	}
}

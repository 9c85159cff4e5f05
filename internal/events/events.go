// Package events is an in-process broadcaster for sync lifecycle
// notifications (start/finish/error). It is the in-memory analogue of the
// teacher's dashboard.Server broadcast channel, adapted to plain callback
// subscribers instead of WebSocket clients: wsrelay subscribes here and is
// what actually puts events on the wire.
package events

import "sync"

// Kind identifies what happened during a sync round.
type Kind string

const (
	KindSyncStart  Kind = "sync:start"
	KindSyncFinish Kind = "sync:finish"
	KindSyncError  Kind = "sync:error"
)

// Event is a single lifecycle notification, matching spec.md §4.6's
// {at, reason, status} payload. Reason carries the trigger that caused the
// round: the mutation name for an on-change sync ("set", "del", "lpush",
// ...), or "interval", "manual", "drift"; At is the
// publish time in Unix milliseconds; Err is set only for KindSyncError.
type Event struct {
	Kind   Kind
	Reason string
	At     int64
	Err    error
}

// Listener receives events synchronously, in the order they were published,
// on the publishing goroutine. Listeners must not block.
type Listener func(Event)

// Bus fans a published Event out to every subscribed Listener.
type Bus struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewBus returns an empty, ready-to-use Bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns a func that removes it. Safe to call
// concurrently with Publish.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Publish delivers ev to every current subscriber. Listeners are snapshotted
// under the lock then invoked outside it, so a Listener calling Subscribe or
// the returned unsubscribe func does not deadlock.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	snapshot := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		snapshot = append(snapshot, l)
	}
	b.mu.RUnlock()

	for _, l := range snapshot {
		l(ev)
	}
}

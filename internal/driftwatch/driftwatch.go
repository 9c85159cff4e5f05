// Package driftwatch notices out-of-band changes to the data directory
// (another process, a manual git pull, a restored backup) and schedules a
// corrective sync. It is supplemental to spec.md — the store's own writes
// already trigger the scheduler's debounce directly — but a bucket file
// edited by anything other than this process would otherwise sit unsynced
// until the next periodic or manual round.
//
// Grounded on the teacher's internal/turso/daemon.FileWatcher: an
// fsnotify.Watcher over one directory, filtered to the extension this
// package cares about, fed into a single consuming goroutine.
package driftwatch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger is called once per detected drift event, with a reason the
// scheduler can log and act on.
type Trigger func(reason string)

// selfWriteGrace is how long a path stays in the "our own write" set after
// Store.Write reports it, so the watcher doesn't schedule a sync reacting
// to its own commit/checkout churn.
const selfWriteGrace = 2 * time.Second

// Watcher observes dataDir for changes not attributable to this process's
// own writes and invokes trigger when it sees one.
type Watcher struct {
	dataDir string
	trigger Trigger
	logger  *log.Logger

	fsw *fsnotify.Watcher

	mu        sync.Mutex
	ignoring  map[string]time.Time
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Watcher over dataDir. Call Start to begin watching.
func New(dataDir string, trigger Trigger, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[driftwatch] ", log.LstdFlags)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		dataDir:  dataDir,
		trigger:  trigger,
		logger:   logger,
		fsw:      fsw,
		ignoring: map[string]time.Time{},
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching dataDir in the background.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	if err := w.fsw.Add(w.dataDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dataDir, err)
	}
	go w.loop()
	return nil
}

// Stop closes the underlying fsnotify watcher and the loop goroutine.
func (w *Watcher) Stop() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

// IgnoreOwnWrite marks path as a self-write so the next change event on it
// within selfWriteGrace is suppressed. path is the bucket file's full path
// under dataDir, as fsnotify reports it; the root Store calls this for
// every bucket a mutation touches.
func (w *Watcher) IgnoreOwnWrite(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignoring[filepath.Clean(path)] = time.Now().Add(selfWriteGrace)
}

func (w *Watcher) shouldIgnore(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	until, ok := w.ignoring[filepath.Clean(path)]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(w.ignoring, filepath.Clean(path))
		return false
	}
	return true
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".json" {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			w.logger.Printf("drift detected: %s %s", ev.Op, ev.Name)
			if w.trigger != nil {
				w.trigger("drift")
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watcher error: %v", err)
		}
	}
}

package gitkv

import (
	"context"
	"log"

	"github.com/gitkv-project/gitkv/internal/compactor"
	"github.com/gitkv-project/gitkv/internal/events"
	"github.com/gitkv-project/gitkv/internal/gitkvconfig"
	"github.com/gitkv-project/gitkv/internal/scheduler"
	"github.com/gitkv-project/gitkv/internal/syncer"
	"github.com/gitkv-project/gitkv/internal/vcsgit"
)

func schedulerConfigFrom(cfg gitkvconfig.Config, logger *log.Logger) scheduler.Config {
	return scheduler.Config{
		AutoSync:            cfg.AutoSync,
		SyncOnChange:        cfg.SyncOnChange,
		Debounce:            cfg.DebounceInterval,
		SyncIntervalMinutes: cfg.SyncIntervalMinutes,
		Logger:              logger,
	}
}

// SyncResult is the return shape of Sync, per spec.md §6.
type SyncResult struct {
	Success bool
	Error   string
}

// Sync runs one round of the fetch/merge/normalize/stage/commit/push
// pipeline against the configured remote, under reason (defaults to
// "manual"). It never panics or returns past this boundary: failures,
// including an in-flight round, are captured into the returned result.
func (s *Store) Sync(reason string) SyncResult {
	if reason == "" {
		reason = "manual"
	}
	err := s.coord.Sync(context.Background(), reason)
	if err != nil {
		return SyncResult{Success: false, Error: err.Error()}
	}
	if s.idx != nil {
		s.mu.Lock()
		if rerr := s.rebuildIndexLocked(); rerr != nil {
			s.logger.Printf("index rebuild after sync failed: %v", rerr)
		}
		s.mu.Unlock()
	}
	return SyncResult{Success: true}
}

// GetStatus returns the coordinator's current state snapshot.
func (s *Store) GetStatus() syncer.Status {
	return s.coord.Status()
}

// SetConfig applies a partial runtime reconfiguration of the scheduler's
// triggers (auto-sync, on-change debounce, periodic interval).
func (s *Store) SetConfig(autoSync, syncOnChange bool, syncIntervalMinutes int) {
	s.mu.Lock()
	s.cfg.AutoSync = autoSync
	s.cfg.SyncOnChange = syncOnChange
	s.cfg.SyncIntervalMinutes = syncIntervalMinutes
	s.mu.Unlock()

	s.sched.Reconfigure(schedulerConfigFrom(s.cfg, s.logger))
}

// Compact forces a history compaction immediately, bypassing the usual
// writeCount/writeBytes thresholds. Used by `gitkv compact`; the automatic
// path (post-sync, threshold-gated) is internal/compactor invoked by the
// syncer after every successful Sync. With no RepoURL configured it does
// nothing and returns vcsgit.ErrPushRejected.
func (s *Store) Compact() error {
	if s.cfg.RepoURL == "" {
		return vcsgit.ErrPushRejected
	}
	c := compactor.New(s.repo, s.buck, compactor.Config{
		Enabled:       true,
		Force:         true,
		DefaultBranch: s.cfg.Branch,
		Branch:        s.cfg.Branch,
		RepoURL:       s.cfg.RepoURL,
	}, s.logger)
	return c.MaybeCompact(context.Background())
}

// On subscribes handler to events of kind, returning a func to unsubscribe.
func (s *Store) On(kind events.Kind, handler func(events.Event)) func() {
	return s.bus.Subscribe(func(ev events.Event) {
		if ev.Kind == kind {
			handler(ev)
		}
	})
}

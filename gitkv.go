// Package gitkv is an embeddable, Git-backed key-value store. State is
// sharded across 256 bucket files under a working directory, synchronized
// across independent writers by periodic three-way merges against a remote
// branch followed by a force-push of the merged snapshot. See DESIGN.md for
// how each internal package maps onto spec.md's components.
package gitkv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gitkv-project/gitkv/internal/bucket"
	"github.com/gitkv-project/gitkv/internal/compactor"
	"github.com/gitkv-project/gitkv/internal/dirlock"
	"github.com/gitkv-project/gitkv/internal/driftwatch"
	"github.com/gitkv-project/gitkv/internal/events"
	"github.com/gitkv-project/gitkv/internal/gitkvconfig"
	"github.com/gitkv-project/gitkv/internal/index"
	"github.com/gitkv-project/gitkv/internal/record"
	"github.com/gitkv-project/gitkv/internal/scheduler"
	"github.com/gitkv-project/gitkv/internal/syncer"
	"github.com/gitkv-project/gitkv/internal/vcsgit"
	"github.com/gitkv-project/gitkv/internal/wsrelay"
)

// Error kinds from spec.md §7, surfaced as typed sentinels rather than
// string-matched messages wherever the caller is this library's own Go API.
var (
	ErrWrongType       = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ErrSyncInFlight re-exports the syncer sentinel so callers of Sync don't
// need to import internal/syncer.
var ErrSyncInFlight = syncer.ErrSyncInFlight

// Store is the embeddable key-value store. One Store owns one working
// directory exclusively (enforced by internal/dirlock).
type Store struct {
	mu sync.Mutex

	cfg    gitkvconfig.Config
	logger *log.Logger

	lock  *dirlock.Lock
	repo  *vcsgit.Repo
	buck  *bucket.Store
	bus   *events.Bus
	coord *syncer.Coordinator
	sched *scheduler.Scheduler

	drift *driftwatch.Watcher
	idx   *index.Index
	relay *wsrelay.Relay
}

// Open acquires an exclusive lock on cfg.DataDir and wires together every
// component a running store needs: the git working copy, the bucket store,
// the sync coordinator and its compactor, the debounce/interval scheduler,
// and whichever supplemented features cfg enables (drift watch, index
// cache, WebSocket relay).
func Open(cfg gitkvconfig.Config) (*Store, error) {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("gitkv: DataDir must be set")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[gitkv] ", log.LstdFlags)
	}

	lock, err := dirlock.Acquire(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg:    cfg,
		logger: logger,
		lock:   lock,
		bus:    events.NewBus(),
	}

	var creds vcsgit.CredentialsFunc
	if cfg.Username != "" || cfg.Token != "" {
		creds = func() (vcsgit.Credentials, bool) {
			return vcsgit.Credentials{Username: s.cfg.Username, Token: s.cfg.Token}, true
		}
	}
	s.repo = vcsgit.Open(cfg.DataDir, creds, logger)
	s.buck = bucket.New(cfg.DataDir, logger)

	ctx := context.Background()
	if err := s.repo.EnsureInit(ctx, cfg.Branch); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("gitkv: ensure repo: %w", err)
	}
	if cfg.RepoURL != "" {
		if err := s.repo.EnsureRemote(ctx, vcsgit.DefaultRemoteName, cfg.RepoURL); err != nil {
			lock.Unlock()
			return nil, fmt.Errorf("gitkv: ensure remote: %w", err)
		}
	}

	comp := compactor.New(s.repo, s.buck, compactor.Config{
		Enabled:             cfg.History.Enabled,
		WriteCountThreshold: cfg.History.WriteCountThreshold,
		WriteBytesThreshold: cfg.History.WriteBytesThreshold,
		DefaultBranch:       cfg.Branch,
		Branch:              cfg.Branch,
		RepoURL:             cfg.RepoURL,
	}, logger)

	s.coord = syncer.New(s.repo, s.buck, s.bus, comp, syncer.Config{
		RepoURL:       cfg.RepoURL,
		Branch:        cfg.Branch,
		DefaultBranch: cfg.Branch,
	}, logger, func() int64 { return time.Now().UnixMilli() })

	s.sched = scheduler.New(s.coord, scheduler.Config{
		AutoSync:            cfg.AutoSync,
		SyncOnChange:        cfg.SyncOnChange,
		Debounce:            cfg.DebounceInterval,
		SyncIntervalMinutes: cfg.SyncIntervalMinutes,
		Logger:              logger,
	})
	s.sched.Start(ctx)

	if cfg.DriftDetection {
		w, err := driftwatch.New(s.buck.DataDir(), func(reason string) { s.sched.OnMutation(reason) }, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("gitkv: drift watch: %w", err)
		}
		if err := w.Start(); err != nil {
			s.Close()
			return nil, fmt.Errorf("gitkv: drift watch start: %w", err)
		}
		s.drift = w
	}

	if cfg.Index.Enabled {
		idxPath := cfg.Index.Path
		if idxPath == "" {
			idxPath = "index.db"
		}
		if !os.IsPathSeparator(idxPath[0]) {
			idxPath = cfg.DataDir + "/" + idxPath
		}
		idx, err := index.Open(idxPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("gitkv: open index: %w", err)
		}
		s.idx = idx
		if err := s.rebuildIndexLocked(); err != nil {
			logger.Printf("index rebuild on open failed: %v", err)
		}
	}

	if cfg.WSRelay.Enabled {
		relayCfg := wsrelay.Config{Addr: cfg.WSRelay.Addr, Logger: logger}
		s.relay = wsrelay.New(relayCfg, s.bus)
		if err := s.relay.Start(); err != nil {
			s.Close()
			return nil, fmt.Errorf("gitkv: start relay: %w", err)
		}
	}

	return s, nil
}

// Close stops the scheduler and any optional subsystems and releases the
// directory lock. Safe to call once.
func (s *Store) Close() error {
	if s.sched != nil {
		s.sched.Stop()
	}
	if s.drift != nil {
		s.drift.Stop()
	}
	if s.relay != nil {
		_ = s.relay.Stop()
	}
	if s.idx != nil {
		_ = s.idx.Close()
	}
	if s.lock != nil {
		return s.lock.Unlock()
	}
	return nil
}

func (s *Store) now() int64 { return time.Now().UnixMilli() }

// onMutation marks the drift watcher's own-write set (if any) and triggers
// the scheduler's on-change debounce.
func (s *Store) onMutation(reason string, touchedBuckets ...string) {
	if s.drift != nil {
		for _, b := range touchedBuckets {
			s.drift.IgnoreOwnWrite(filepath.Join(s.buck.DataDir(), b+".json"))
		}
	}
	if s.sched != nil {
		s.sched.OnMutation(reason)
	}
}

func (s *Store) touchIndex(bucketID string, r *record.Record) {
	if s.idx == nil || r == nil {
		return
	}
	ctx := context.Background()
	if r.Live() {
		if err := s.idx.Upsert(ctx, bucketID, r); err != nil {
			s.logger.Printf("index upsert %s: %v", r.Key, err)
		}
	} else if err := s.idx.Remove(ctx, r.Key); err != nil {
		s.logger.Printf("index remove %s: %v", r.Key, err)
	}
}

func (s *Store) rebuildIndexLocked() error {
	if s.idx == nil {
		return nil
	}
	ids, err := s.buck.ListBuckets()
	if err != nil {
		return err
	}
	byBucket := map[string][]*record.Record{}
	for _, id := range ids {
		m := s.buck.Read(id)
		recs := make([]*record.Record, 0, len(m))
		for _, r := range m {
			recs = append(recs, r)
		}
		byBucket[id] = recs
	}
	return s.idx.Rebuild(context.Background(), byBucket)
}

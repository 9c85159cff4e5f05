// Package syncer implements the sync coordinator: the single-flight state
// machine that drives one round of fetch/merge/commit/push against the
// configured git remote. Modeled on the teacher's internal/turso/sync.syncer
// (construction, logger defaulting, per-stage error wrapping) but the stages
// themselves implement spec.md §4.6's merge pipeline rather than a
// file-to-database sync.
package syncer

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/gitkv-project/gitkv/internal/bucket"
	"github.com/gitkv-project/gitkv/internal/events"
	"github.com/gitkv-project/gitkv/internal/vcsgit"
)

// RemoteName is the single remote this store ever talks to.
const RemoteName = vcsgit.DefaultRemoteName

// ErrSyncInFlight is returned by Sync when a round is already running; per
// spec.md §5, callers never queue behind an in-flight round.
var ErrSyncInFlight = errors.New("sync already in flight")

// Compactor is invoked after every successful round. The concrete
// implementation (internal/compactor) owns the threshold decision, so
// syncer only needs this narrow seam to avoid importing it directly.
type Compactor interface {
	MaybeCompact(ctx context.Context) error
}

// Config is the subset of store configuration the coordinator needs.
type Config struct {
	RepoURL       string
	Branch        string
	DefaultBranch string
}

// Status is the externally observable state of the coordinator.
type Status struct {
	State      string // "idle", "syncing", "error"
	InFlight   bool
	LastError  string
	LastSyncAt int64
}

// Coordinator owns the idle -> syncing -> (idle | error) state machine
// described in spec.md §4.6.
type Coordinator struct {
	mu         sync.Mutex
	state      string
	inFlight   bool
	lastError  string
	lastSyncAt int64

	cfg       Config
	repo      *vcsgit.Repo
	store     *bucket.Store
	bus       *events.Bus
	compactor Compactor
	logger    *log.Logger
	nowMs     func() int64
}

// New wires a Coordinator. compactor and bus may be nil (a nil bus makes
// event publication a no-op; a nil compactor skips post-sync compaction).
func New(repo *vcsgit.Repo, store *bucket.Store, bus *events.Bus, compactor Compactor, cfg Config, logger *log.Logger, nowMs func() int64) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncer] ", log.LstdFlags)
	}
	if bus == nil {
		bus = events.NewBus()
	}
	return &Coordinator{
		state:     "idle",
		cfg:       cfg,
		repo:      repo,
		store:     store,
		bus:       bus,
		compactor: compactor,
		logger:    logger,
		nowMs:     nowMs,
	}
}

// Status returns a snapshot of the coordinator's current state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.state,
		InFlight:   c.inFlight,
		LastError:  c.lastError,
		LastSyncAt: c.lastSyncAt,
	}
}

// Sync runs one round of the pipeline for reason ("manual", "interval",
// "drift", or a mutation name such as "set"). It returns ErrSyncInFlight without touching
// state if a round is already running.
func (c *Coordinator) Sync(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrSyncInFlight
	}
	c.inFlight = true
	c.state = "syncing"
	c.mu.Unlock()

	c.bus.Publish(events.Event{Kind: events.KindSyncStart, Reason: reason, At: c.now()})
	c.logger.Printf("sync start (%s)", reason)

	err := c.runPipeline(ctx, reason)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.state = "error"
		c.lastError = err.Error()
	} else {
		c.state = "idle"
		c.lastError = ""
		c.lastSyncAt = c.now()
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Printf("sync error (%s): %v", reason, err)
		c.bus.Publish(events.Event{Kind: events.KindSyncError, Reason: reason, At: c.now(), Err: err})
		return err
	}

	c.logger.Printf("sync finish (%s)", reason)
	c.bus.Publish(events.Event{Kind: events.KindSyncFinish, Reason: reason, At: c.now()})

	if c.compactor != nil {
		if cerr := c.compactor.MaybeCompact(ctx); cerr != nil {
			c.logger.Printf("compaction after sync failed: %v", cerr)
		}
	}
	return nil
}

func (c *Coordinator) now() int64 {
	if c.nowMs != nil {
		return c.nowMs()
	}
	return 0
}

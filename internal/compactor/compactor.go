// Package compactor bounds the size of the on-disk .git history once
// mutation volume crosses a threshold, per spec.md §4.8: wipe .git, start a
// single fresh commit from the current merged snapshot, and force-push it.
package compactor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/gitkv-project/gitkv/internal/bucket"
	"github.com/gitkv-project/gitkv/internal/vcsgit"
)

// Config carries the compaction thresholds and the default branch/remote
// used when history is reset.
type Config struct {
	Enabled             bool
	WriteCountThreshold int
	WriteBytesThreshold int64
	DefaultBranch       string
	Branch              string
	RepoURL             string

	// Force bypasses the threshold check, for a manually requested
	// compaction (e.g. the CLI's `gitkv compact`).
	Force bool
}

// Compactor wires a Repo and Store together to implement MaybeCompact,
// satisfying the internal/syncer.Compactor seam.
type Compactor struct {
	repo   *vcsgit.Repo
	store  *bucket.Store
	cfg    Config
	logger *log.Logger
}

// New returns a Compactor for the given repo/store under cfg.
func New(repo *vcsgit.Repo, store *bucket.Store, cfg Config, logger *log.Logger) *Compactor {
	if logger == nil {
		logger = log.New(os.Stderr, "[compactor] ", log.LstdFlags)
	}
	return &Compactor{repo: repo, store: store, cfg: cfg, logger: logger}
}

// MaybeCompact performs history compaction if history.enabled is true and
// either accumulated counter has crossed its threshold. No-op (and does not
// reset counters) if no remote is configured, since there would be nothing
// to push the compacted history to.
func (c *Compactor) MaybeCompact(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	if c.cfg.RepoURL == "" {
		return nil
	}

	writes, bytesWritten := c.store.WriteCount(), c.store.WriteBytes()
	crossed := c.cfg.Force ||
		(c.cfg.WriteCountThreshold > 0 && writes >= int64(c.cfg.WriteCountThreshold)) ||
		(c.cfg.WriteBytesThreshold > 0 && bytesWritten >= c.cfg.WriteBytesThreshold)
	if !crossed {
		return nil
	}

	c.logger.Printf("compacting history: writes=%d bytes=%s", writes, humanize.Bytes(uint64(bytesWritten)))

	if err := os.RemoveAll(filepath.Join(c.repo.Root(), ".git")); err != nil {
		return fmt.Errorf("remove .git: %w", err)
	}
	if err := c.repo.EnsureInit(ctx, c.cfg.DefaultBranch); err != nil {
		return fmt.Errorf("reinit: %w", err)
	}
	if err := c.repo.EnsureRemote(ctx, vcsgit.DefaultRemoteName, c.cfg.RepoURL); err != nil {
		return fmt.Errorf("reattach remote: %w", err)
	}

	if err := c.repo.StageAll(ctx, c.store.DataDir()); err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	if _, err := c.repo.Commit(ctx, "compact history"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := c.repo.Push(ctx, vcsgit.DefaultRemoteName, c.cfg.Branch); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	c.store.ResetCounters()
	c.logger.Printf("compaction complete")
	return nil
}

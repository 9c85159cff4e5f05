package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gitkv-project/gitkv/internal/bucket"
	"github.com/gitkv-project/gitkv/internal/keyrouter"
	"github.com/gitkv-project/gitkv/internal/listmodel"
	"github.com/gitkv-project/gitkv/internal/merge"
	"github.com/gitkv-project/gitkv/internal/record"
	"github.com/gitkv-project/gitkv/internal/vcsgit"
)

// remoteRef is the remote-tracking ref the pipeline reads blobs from after
// fetching; a plain "origin/<branch>" mirrors how the branch would be named
// locally once tracked.
func (c *Coordinator) remoteRef() string {
	return RemoteName + "/" + c.cfg.Branch
}

// runPipeline implements spec.md §4.6 steps 1-10. Step 3 and step 4's
// ErrRemoteBranchAbsent cases are handled inline rather than via the
// original's pipeline-wide substring-sniffing recovery: since vcsgit
// surfaces a typed error exactly where git itself detects the condition,
// there is no longer a need to catch it again at the top of the pipeline.
func (c *Coordinator) runPipeline(ctx context.Context, reason string) error {
	hasRemote := c.cfg.RepoURL != ""

	// Step 1: ensure repo.
	if err := c.repo.EnsureInit(ctx, c.cfg.DefaultBranch); err != nil {
		return fmt.Errorf("ensure repo: %w", err)
	}
	if hasRemote {
		if err := c.repo.EnsureRemote(ctx, RemoteName, c.cfg.RepoURL); err != nil {
			return fmt.Errorf("ensure remote: %w", err)
		}
	}

	// Step 2: ensure branch.
	remoteForCheckout := ""
	if hasRemote {
		remoteForCheckout = RemoteName
	}
	if err := c.repo.EnsureBranch(ctx, remoteForCheckout, c.cfg.Branch); err != nil {
		return fmt.Errorf("ensure branch: %w", err)
	}

	// Step 3: fetch. A remote branch that doesn't exist yet is a bootstrap
	// case, not a failure: the merge below simply sees an empty remote side.
	remoteHasBranch := false
	if hasRemote {
		if err := c.repo.Fetch(ctx, RemoteName, c.cfg.Branch); err != nil {
			if !errors.Is(err, vcsgit.ErrRemoteBranchAbsent) {
				return fmt.Errorf("fetch: %w", err)
			}
		} else {
			remoteHasBranch = true
		}
	}

	// Step 4: enumerate buckets from local disk and the remote ref.
	localBucketIDs, err := c.store.ListBuckets()
	if err != nil {
		return fmt.Errorf("list local buckets: %w", err)
	}

	var remoteBucketIDs []string
	if remoteHasBranch {
		files, err := c.repo.ListFilesAtRef(ctx, c.remoteRef(), bucket.DataDirName)
		if err != nil && !errors.Is(err, vcsgit.ErrRemoteBranchAbsent) {
			return fmt.Errorf("list remote buckets: %w", err)
		}
		for _, f := range files {
			remoteBucketIDs = append(remoteBucketIDs, bucketIDFromPath(f))
		}
	}

	bucketSet := map[string]bool{}
	for _, id := range localBucketIDs {
		bucketSet[id] = true
	}
	for _, id := range remoteBucketIDs {
		bucketSet[id] = true
	}

	// Step 5: merge buckets.
	buckets := listmodel.Buckets{}
	var pendingLosers []listmodel.PendingLoser

	for bucketID := range bucketSet {
		local := c.store.Read(bucketID)
		remote := c.readRemoteBucket(ctx, remoteHasBranch, bucketID)

		merged, losers := mergeBucket(local, remote)
		buckets[bucketID] = merged
		pendingLosers = append(pendingLosers, losers...)

		if err := c.store.Write(bucketID, merged); err != nil {
			return fmt.Errorf("write bucket %s: %w", bucketID, err)
		}
	}

	// Step 6: apply pending losers (Phase A).
	touchedA := listmodel.ApplyLosers(buckets, pendingLosers)

	// Step 7: normalize list orders (Phase B).
	touchedB := listmodel.Normalize(buckets, listmodel.ListNames(buckets))

	for id := range touchedA {
		if err := c.store.Write(id, buckets[id]); err != nil {
			return fmt.Errorf("write bucket %s after apply-losers: %w", id, err)
		}
	}
	for id := range touchedB {
		if touchedA[id] {
			continue
		}
		if err := c.store.Write(id, buckets[id]); err != nil {
			return fmt.Errorf("write bucket %s after normalize: %w", id, err)
		}
	}

	// Step 8 & 9: stage and commit.
	if err := c.repo.StageAll(ctx, c.store.DataDir()); err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	if _, err := c.repo.Commit(ctx, "sync: "+reason); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// Step 10: push.
	if hasRemote {
		if err := c.repo.Push(ctx, RemoteName, c.cfg.Branch); err != nil {
			return fmt.Errorf("push: %w", err)
		}
	}

	return nil
}

func (c *Coordinator) readRemoteBucket(ctx context.Context, remoteHasBranch bool, bucketID string) map[string]*record.Record {
	if !remoteHasBranch {
		return map[string]*record.Record{}
	}
	blob := c.repo.ReadBlobAtRef(ctx, c.remoteRef(), bucket.RelPath(bucketID))
	if len(blob) == 0 {
		return map[string]*record.Record{}
	}
	var m map[string]*record.Record
	if err := json.Unmarshal(blob, &m); err != nil {
		return map[string]*record.Record{}
	}
	return m
}

// mergeBucket merges local and remote key maps for one bucket, routing list
// items through the list-item merger (collecting losers) and everything
// else through the scalar LWW merger.
func mergeBucket(local, remote map[string]*record.Record) (map[string]*record.Record, []listmodel.PendingLoser) {
	merged := map[string]*record.Record{}
	var losers []listmodel.PendingLoser

	keys := map[string]bool{}
	for k := range local {
		keys[k] = true
	}
	for k := range remote {
		keys[k] = true
	}

	for key := range keys {
		l, r := local[key], remote[key]

		if listName, itemID, ok := keyrouter.ParseListItemKey(key); ok {
			result := merge.ListItem(l, r)
			if result.Winner != nil {
				merged[key] = result.Winner
			}
			if result.Loser != nil {
				losers = append(losers, listmodel.PendingLoser{
					ListName:     listName,
					WinnerItemID: itemID,
					Record:       result.Loser,
				})
			}
			continue
		}

		if winner := merge.Scalar(l, r); winner != nil {
			merged[key] = winner
		}
	}

	return merged, losers
}

func bucketIDFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

package vcsgit

import (
	"context"
	"fmt"
	"strings"
)

// CommitAuthor is the fixed author identity stamped on every sync/compaction
// commit, independent of whichever local user configured the machine.
const CommitAuthor = "git-storage <sync@git-storage.local>"

// Dirty reports whether the working tree has any untracked, modified, or
// deleted paths relative to the index, per spec.md §4.6 step 8's
// head/workdir/stage comparison.
func (r *Repo) Dirty(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// StageAll adds every change under path (new, modified, and removed files)
// to the index. A path that matches nothing (e.g. a data directory that has
// not been created yet) stages nothing and is not an error.
func (r *Repo) StageAll(ctx context.Context, path string) error {
	if out, err := r.run(ctx, "add", "-A", "--", path); err != nil {
		if strings.Contains(string(out), "did not match any files") {
			return nil
		}
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}

// Commit records a commit with the fixed CommitAuthor identity and the given
// message, e.g. "sync: <reason>" or "compact history". Returns false instead
// of an error when there is nothing staged to commit, since "no changes" is
// an expected outcome of a sync round, not a failure.
func (r *Repo) Commit(ctx context.Context, message string) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	staged := false
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) > 0 && line[0] != ' ' && line[0] != '?' {
			staged = true
			break
		}
	}
	if !staged {
		return false, nil
	}
	if _, err := r.run(ctx, "commit", "--author="+CommitAuthor, "-m", message); err != nil {
		return false, fmt.Errorf("git commit: %w", err)
	}
	return true, nil
}

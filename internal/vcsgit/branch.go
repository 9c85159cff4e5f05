package vcsgit

import (
	"context"
	"fmt"
)

// RefExists reports whether local branch name exists.
func (r *Repo) RefExists(ctx context.Context, name string) bool {
	_, err := r.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}

// RemoteRefExists reports whether origin/<name> is known locally (i.e. has
// been fetched at least once).
func (r *Repo) RemoteRefExists(ctx context.Context, remote, name string) bool {
	_, err := r.run(ctx, "show-ref", "--verify", "--quiet", "refs/remotes/"+remote+"/"+name)
	return err == nil
}

// CurrentBranch returns the checked-out branch name, or "" if detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		if looksLikeRemoteBranchAbsent(string(out)) {
			return "", nil
		}
		return "", nil // detached HEAD or unborn branch
	}
	return trimNewline(string(out)), nil
}

// EnsureBranch implements spec.md §4.6 step 2: if branch exists locally,
// check it out; else if origin/<branch> exists, check it out tracking that;
// else create and check out branch fresh.
func (r *Repo) EnsureBranch(ctx context.Context, remote, branch string) error {
	if r.RefExists(ctx, branch) {
		if _, err := r.run(ctx, "checkout", branch); err != nil {
			return fmt.Errorf("checkout %s: %w", branch, err)
		}
		return nil
	}

	if remote != "" && r.RemoteRefExists(ctx, remote, branch) {
		if _, err := r.run(ctx, "checkout", "-b", branch, "--track", remote+"/"+branch); err != nil {
			return fmt.Errorf("checkout tracking %s/%s: %w", remote, branch, err)
		}
		return nil
	}

	if _, err := r.run(ctx, "checkout", "-b", branch); err != nil {
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	return nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

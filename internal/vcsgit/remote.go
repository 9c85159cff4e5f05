package vcsgit

import "context"

// Fetch retrieves remote into its remote-tracking refs. If branch has never
// been pushed to remote, ErrRemoteBranchAbsent is returned and the sync
// coordinator treats this as a bootstrap case rather than a failure, per
// spec.md §4.6 step 3.
func (r *Repo) Fetch(ctx context.Context, remote, branch string) error {
	args := []string{}
	args = append(args, r.authArgs()...)
	args = append(args, "fetch", remote, branch)

	out, err := r.run(ctx, args...)
	if err != nil {
		if looksLikeRemoteBranchAbsent(string(out)) {
			return ErrRemoteBranchAbsent
		}
		return err
	}
	return nil
}

// Push force-pushes the current branch to remote. A force-push is always
// used here because this store resolves conflicts locally via LWW merge
// before ever touching git, so there is never a legitimate reason for the
// remote tip to win over a freshly-merged local commit (see spec.md's Design
// Notes on future CAS/retry hardening).
func (r *Repo) Push(ctx context.Context, remote, branch string) error {
	args := []string{}
	args = append(args, r.authArgs()...)
	args = append(args, "push", "--force", remote, branch)

	if _, err := r.run(ctx, args...); err != nil {
		return ErrPushRejected
	}
	return nil
}

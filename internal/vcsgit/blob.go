package vcsgit

import (
	"context"
	"strings"
)

// ListFilesAtRef lists every file under prefix as it exists at ref, without
// touching the working tree. Used to enumerate the remote's bucket files
// during fetch (spec.md §4.6 step 4) without a checkout.
func (r *Repo) ListFilesAtRef(ctx context.Context, ref, prefix string) ([]string, error) {
	out, err := r.run(ctx, "ls-tree", "-r", "--name-only", ref, "--", prefix)
	if err != nil {
		if looksLikeRemoteBranchAbsent(string(out)) {
			return nil, ErrRemoteBranchAbsent
		}
		return nil, err
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// ReadBlobAtRef returns the contents of path as it exists at ref. Any
// failure (missing ref, missing path, not yet fetched) degrades to an empty
// slice rather than an error, matching spec.md's availability trade-off for
// reading remote bucket blobs: a sync round should never fail outright just
// because one bucket is unreadable at the remote tip.
func (r *Repo) ReadBlobAtRef(ctx context.Context, ref, path string) []byte {
	out, err := r.run(ctx, "show", ref+":"+path)
	if err != nil {
		return nil
	}
	return out
}

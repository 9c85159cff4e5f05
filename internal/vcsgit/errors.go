package vcsgit

import (
	"errors"
	"strings"
)

// ErrRemoteBranchAbsent is the typed replacement for the original
// implementation's "NotFoundError" substring sniffing (see spec.md's
// REDESIGN FLAGS): it means the remote exists but <branch> hasn't been
// pushed there yet, which the sync coordinator treats as a bootstrap case
// rather than a failure.
var ErrRemoteBranchAbsent = errors.New("remote branch does not exist yet")

// ErrPushRejected means the remote rejected the push for a reason other
// than the branch being absent (rare here since the coordinator always
// force-pushes, but surfaced for completeness and for the compactor).
var ErrPushRejected = errors.New("push rejected by remote")

// looksLikeRemoteBranchAbsent is the substring fallback REDESIGN FLAGS
// permits when no typed signal is available: git's own CLI doesn't hand us
// a structured error type, only stderr text, so the "NotFoundError"
// substring check from the original implementation becomes a check against
// the handful of stderr phrases git actually emits for this condition.
func looksLikeRemoteBranchAbsent(output string) bool {
	phrases := []string{
		"couldn't find remote ref",
		"unknown revision or path not in the working tree",
		"fatal: couldn't find remote ref",
		"ambiguous argument",
	}
	lower := strings.ToLower(output)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

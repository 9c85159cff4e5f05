// Package merge implements the two deterministic merge rules the sync
// coordinator applies record-by-record: plain last-write-wins for scalar
// (and list meta) records, and the tombstone-aware list-item rule that
// surfaces a defeated concurrent write as a loser instead of discarding it.
package merge

import "github.com/gitkv-project/gitkv/internal/record"

// Scalar merges local and remote for the same key under last-write-wins.
// Either side may be nil. Returns nil only when both sides are nil.
//
// Rules: if one side is absent, the other wins outright. Otherwise compare
// UpdatedAt (larger wins); ties are broken by lexicographically-greater ID,
// a stable deterministic choice that doesn't depend on which replica is
// "local". Tombstones participate identically to live records.
func Scalar(local, remote *record.Record) *record.Record {
	if local == nil && remote == nil {
		return nil
	}
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}

	lt, rt := updatedAt(local), updatedAt(remote)
	switch {
	case lt > rt:
		return local
	case rt > lt:
		return remote
	default:
		if local.ID >= remote.ID {
			return local
		}
		return remote
	}
}

// updatedAt treats a non-finite/zero-value UpdatedAt as 0, matching spec's
// "non-finite treated as 0" rule for the comparison.
func updatedAt(r *record.Record) int64 {
	return r.UpdatedAt
}

// ListItemResult is the outcome of merging one list item slot: Winner
// occupies the key going forward; Loser, if non-nil, is a live record that
// lost the merge and must be re-added under a fresh item id by the list
// normalizer.
type ListItemResult struct {
	Winner *record.Record
	Loser  *record.Record
}

// ListItem merges local and remote list-item records for the same derived
// key, applying the rule that a live write always beats a concurrent delete
// regardless of timestamp, and that two live writes which differ either in
// UpdatedAt or ID produce a visible loser rather than silently discarding
// the defeated value.
func ListItem(local, remote *record.Record) ListItemResult {
	if local == nil && remote == nil {
		return ListItemResult{}
	}
	if local == nil {
		return ListItemResult{Winner: remote}
	}
	if remote == nil {
		return ListItemResult{Winner: local}
	}

	localLive, remoteLive := local.Live(), remote.Live()

	switch {
	case !localLive && !remoteLive:
		// Both tombstoned: ordinary LWW, no loser to surface.
		return ListItemResult{Winner: Scalar(local, remote)}

	case localLive != remoteLive:
		// One tombstoned, one live: the live write wins unconditionally,
		// "delete-vs-update prefers update" regardless of which timestamp
		// is newer.
		if localLive {
			return ListItemResult{Winner: local}
		}
		return ListItemResult{Winner: remote}

	default:
		// Both live: LWW picks the winner; if the two sides differ at all
		// (timestamp or id), the defeated value is a loser to be
		// reinserted by the list normalizer rather than dropped.
		winner := Scalar(local, remote)
		var loser *record.Record
		if local.UpdatedAt != remote.UpdatedAt || local.ID != remote.ID {
			if winner == local {
				loser = remote
			} else {
				loser = local
			}
		}
		return ListItemResult{Winner: winner, Loser: loser}
	}
}

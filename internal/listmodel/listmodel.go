// Package listmodel reconciles list order against the records that actually
// survive a merge round. It runs in two phases after the per-key scalar/
// list-item merge: applying any pending conflict losers (Phase A), then
// reconciling every list's order array against the live record set so two
// replicas that observed the same records always compute the same order
// (Phase B).
package listmodel

import (
	"sort"

	"github.com/gitkv-project/gitkv/internal/keyrouter"
	"github.com/gitkv-project/gitkv/internal/record"
)

// Buckets is the in-memory view the normalizer operates over: bucket id ->
// (key -> record), spanning every bucket touched by a sync round.
type Buckets map[string]map[string]*record.Record

// PendingLoser is a list item that lost its merge but must be reinserted by
// Phase A under a fresh item id, carrying the original winner's item id so
// it can be spliced back in next to it.
type PendingLoser struct {
	ListName     string
	WinnerItemID string
	Record       *record.Record
}

// OrderOf reads a list meta record's order array, tolerating both the
// []string shape a freshly-built meta carries and the []any shape a record
// decoded from JSON carries.
func OrderOf(meta *record.Record) []string {
	switch v := meta.Value.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SetOrder replaces a list meta record's order array.
func SetOrder(meta *record.Record, order []string) {
	meta.Value = order
}

func insertAfterOrAppend(order []string, afterID, newID string) []string {
	for i, id := range order {
		if id == afterID {
			out := make([]string, 0, len(order)+1)
			out = append(out, order[:i+1]...)
			out = append(out, newID)
			out = append(out, order[i+1:]...)
			return out
		}
	}
	return append(order, newID)
}

// ApplyLosers is Phase A: for each pending loser, mints a fresh item id,
// rewrites the loser under list:<L>:item:<newId> tagged with conflictLoser,
// and splices the new id into the list meta's order immediately after the
// winner (or appends it if the winner has since left the order). Losers
// sharing a winner are applied in reverse (updatedAt, id) order so that,
// once all are applied, they read in ascending order after the winner.
// Returns the set of bucket ids that were modified.
func ApplyLosers(buckets Buckets, losers []PendingLoser) map[string]bool {
	touched := map[string]bool{}
	if len(losers) == 0 {
		return touched
	}

	sorted := make([]PendingLoser, len(losers))
	copy(sorted, losers)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Record, sorted[j].Record
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt < b.UpdatedAt
		}
		return a.ID < b.ID
	})

	for i := len(sorted) - 1; i >= 0; i-- {
		pl := sorted[i]

		newID := record.NewID()
		newKey := keyrouter.ListItemKey(pl.ListName, newID)

		newRec := pl.Record.Clone()
		newRec.Key = newKey
		newRec.ConflictLoser = &record.ConflictLoser{WinnerID: pl.WinnerItemID}
		if newRec.Type == record.TypeObject {
			markConflictLoser(newRec)
		}

		itemBucket := keyrouter.BucketOf(newKey)
		if buckets[itemBucket] == nil {
			buckets[itemBucket] = map[string]*record.Record{}
		}
		buckets[itemBucket][newKey] = newRec
		touched[itemBucket] = true

		metaKey := keyrouter.ListMetaKey(pl.ListName)
		metaBucket := keyrouter.BucketOf(metaKey)
		metaMap := buckets[metaBucket]
		if metaMap == nil {
			continue
		}
		meta := metaMap[metaKey]
		if meta == nil || !meta.Live() {
			continue
		}

		SetOrder(meta, insertAfterOrAppend(OrderOf(meta), pl.WinnerItemID, newID))
		touched[metaBucket] = true
	}

	return touched
}

// markConflictLoser additionally tags an object-typed value with
// __conflictLoser: true so consumers reading only the value (not the
// surrounding record) can still notice the conflict.
func markConflictLoser(r *record.Record) {
	obj, ok := r.Value.(map[string]any)
	if !ok {
		return
	}
	tagged := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		tagged[k] = v
	}
	tagged["__conflictLoser"] = true
	r.Value = tagged
}

// ListNames returns every list name with a live meta record across buckets.
func ListNames(buckets Buckets) []string {
	seen := map[string]struct{}{}
	for _, m := range buckets {
		for key, rec := range m {
			if name, ok := keyrouter.IsListMetaKey(key); ok && rec.Live() {
				seen[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Normalize is Phase B: for every name in listNames, reconciles the meta's
// order array against the set of live item records that actually belong to
// that list. This is a pure function of the record set, so two replicas
// that have observed the same records converge on byte-identical orders.
// Returns the set of bucket ids whose meta record order changed.
func Normalize(buckets Buckets, listNames []string) map[string]bool {
	touched := map[string]bool{}

	for _, name := range listNames {
		metaKey := keyrouter.ListMetaKey(name)
		metaBucket := keyrouter.BucketOf(metaKey)
		metaMap := buckets[metaBucket]
		if metaMap == nil {
			continue
		}
		meta := metaMap[metaKey]
		if meta == nil || !meta.Live() {
			continue
		}

		liveItems := collectLiveItems(buckets, name)

		order := OrderOf(meta)
		filtered := make([]string, 0, len(order))
		present := map[string]bool{}
		for _, id := range order {
			if _, ok := liveItems[id]; ok {
				filtered = append(filtered, id)
				present[id] = true
			}
		}

		var losers, others []string
		for id := range liveItems {
			if present[id] {
				continue
			}
			if liveItems[id].ConflictLoser != nil {
				losers = append(losers, id)
			} else {
				others = append(others, id)
			}
		}
		sortByUpdatedThenID(losers, liveItems)
		sortByUpdatedThenID(others, liveItems)

		reconciled := filtered
		for _, id := range losers {
			winner := liveItems[id].ConflictLoser.WinnerID
			reconciled = insertAfterOrAppend(reconciled, winner, id)
		}
		reconciled = append(reconciled, others...)

		if !sameOrder(reconciled, order) {
			SetOrder(meta, reconciled)
			touched[metaBucket] = true
		}
	}

	return touched
}

func collectLiveItems(buckets Buckets, listName string) map[string]*record.Record {
	out := map[string]*record.Record{}
	for _, m := range buckets {
		for key, rec := range m {
			name, itemID, ok := keyrouter.ParseListItemKey(key)
			if !ok || name != listName || !rec.Live() {
				continue
			}
			out[itemID] = rec
		}
	}
	return out
}

func sortByUpdatedThenID(ids []string, byID map[string]*record.Record) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := byID[ids[i]], byID[ids[j]]
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt < b.UpdatedAt
		}
		return ids[i] < ids[j]
	})
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

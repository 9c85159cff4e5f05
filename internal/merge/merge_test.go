package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gitkv-project/gitkv/internal/record"
)

func rec(id string, updatedAt int64, deleted bool) *record.Record {
	r := &record.Record{ID: id, Key: "k", Type: record.TypeString, Value: "v", UpdatedAt: updatedAt}
	if deleted {
		r.Delete(updatedAt)
	}
	return r
}

func TestScalarOneAbsent(t *testing.T) {
	r := rec("a", 100, false)
	if got := Scalar(r, nil); got != r {
		t.Fatalf("expected local to win when remote absent")
	}
	if got := Scalar(nil, r); got != r {
		t.Fatalf("expected remote to win when local absent")
	}
	if got := Scalar(nil, nil); got != nil {
		t.Fatalf("expected nil when both absent")
	}
}

func TestScalarNewerWins(t *testing.T) {
	older := rec("a", 100, false)
	newer := rec("b", 200, false)
	if got := Scalar(older, newer); got != newer {
		t.Fatalf("expected strictly newer record to win")
	}
	if got := Scalar(newer, older); got != newer {
		t.Fatalf("expected strictly newer record to win regardless of argument order")
	}
}

func TestScalarTieBreaksOnID(t *testing.T) {
	a := rec("aaaa", 100, false)
	b := rec("bbbb", 100, false)
	if got := Scalar(a, b); got != b {
		t.Fatalf("expected lexicographically greater id to win on tie")
	}
	if got := Scalar(b, a); got != b {
		t.Fatalf("expected same winner regardless of argument order")
	}
}

func TestScalarIdempotent(t *testing.T) {
	l := rec("a", 100, false)
	r := rec("b", 200, false)
	m1 := Scalar(l, r)
	m2 := Scalar(m1, r)
	if m1 != m2 {
		t.Fatalf("merge must be idempotent: merge(merge(l,r),r) != merge(l,r)")
	}
}

func TestListItemBothTombstonedNoLoser(t *testing.T) {
	l := rec("a", 100, true)
	r := rec("b", 200, true)
	res := ListItem(l, r)
	if res.Winner != r {
		t.Fatalf("expected newer tombstone to win")
	}
	if res.Loser != nil {
		t.Fatalf("expected no loser when both sides tombstoned")
	}
}

func TestListItemLiveBeatsTombstoneRegardlessOfTimestamp(t *testing.T) {
	liveOlder := rec("a", 2000, false)
	deletedNewer := rec("b", 4500, true)

	res := ListItem(liveOlder, deletedNewer)
	if res.Winner != liveOlder {
		t.Fatalf("expected live record to win even though the delete is newer")
	}
	if res.Loser != nil {
		t.Fatalf("expected no loser for tombstone-vs-live merges")
	}

	res2 := ListItem(deletedNewer, liveOlder)
	if res2.Winner != liveOlder {
		t.Fatalf("expected live record to win regardless of argument order")
	}
}

func TestListItemBothLiveDifferProducesLoser(t *testing.T) {
	a := rec("00000000-0000-0000-0000-000000000001", 2000, false)
	b := rec("00000000-0000-0000-0000-000000000002", 2500, false)

	res := ListItem(a, b)
	if res.Winner != b {
		t.Fatalf("expected newer write to win")
	}
	if res.Loser != a {
		t.Fatalf("expected defeated live write to surface as loser")
	}
}

func TestListItemBothLiveIdenticalTimestampAndIDNoLoser(t *testing.T) {
	a := rec("same-id", 2000, false)
	b := rec("same-id", 2000, false)

	res := ListItem(a, b)
	if res.Loser != nil {
		t.Fatalf("expected no loser when (updatedAt, id) are identical on both sides")
	}
}

func TestScalarMergeIsCommutative(t *testing.T) {
	l := rec("a", 100, false)
	r := rec("b", 200, false)

	lr := Scalar(l, r)
	rl := Scalar(r, l)
	if diff := cmp.Diff(lr, rl); diff != "" {
		t.Fatalf("Scalar(l, r) and Scalar(r, l) must agree on the full record (-got +want):\n%s", diff)
	}
}

func TestListItemEitherAbsentNoLoser(t *testing.T) {
	a := rec("a", 100, false)
	res := ListItem(a, nil)
	if res.Winner != a || res.Loser != nil {
		t.Fatalf("expected sole present side to win with no loser")
	}
}

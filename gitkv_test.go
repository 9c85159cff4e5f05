package gitkv

import (
	"testing"
	"time"

	"github.com/gitkv-project/gitkv/internal/events"
	"github.com/gitkv-project/gitkv/internal/gitkvconfig"
	"github.com/gitkv-project/gitkv/internal/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := gitkvconfig.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.AutoSync = false
	cfg.History.Enabled = false

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetHasDel(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.Get("greeting"); ok {
		t.Fatalf("expected absent key to be not-ok")
	}
	if err := s.Set("greeting", "hello"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := s.Get("greeting")
	if !ok || v != "hello" {
		t.Fatalf("expected (hello, true), got (%v, %v)", v, ok)
	}
	if !s.Has("greeting") {
		t.Fatalf("expected Has to report true")
	}

	if err := s.Del("greeting"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if s.Has("greeting") {
		t.Fatalf("expected Has to report false after Del")
	}
	if _, ok := s.Get("greeting"); ok {
		t.Fatalf("expected Get to report false after Del")
	}
}

func TestTypeAndMeta(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("n", 42); err != nil {
		t.Fatalf("Set: %v", err)
	}
	typ, ok := s.Type("n")
	if !ok || typ != record.TypeNumber {
		t.Fatalf("expected (number, true), got (%v, %v)", typ, ok)
	}

	meta, ok := s.Meta("n")
	if !ok || meta.Key != "n" || meta.Value != float64(42) {
		t.Fatalf("unexpected meta: %+v ok=%v", meta, ok)
	}
}

func TestMgetMset(t *testing.T) {
	s := newTestStore(t)

	if err := s.Mset(map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("Mset: %v", err)
	}
	got := s.Mget([]string{"a", "b", "missing"})
	if got[0] != float64(1) || got[1] != float64(2) || got[2] != nil {
		t.Fatalf("unexpected Mget result: %v", got)
	}
}

func TestKeysScanList(t *testing.T) {
	s := newTestStore(t)

	for _, k := range []string{"user:1", "user:2", "order:1"} {
		if err := s.Set(k, k); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	keys := s.Keys("user:*")
	if len(keys) != 2 {
		t.Fatalf("expected 2 user:* keys, got %v", keys)
	}

	all := s.Keys("*")
	if len(all) != 3 {
		t.Fatalf("expected 3 keys total, got %v", all)
	}

	var scanned []string
	cursor := 0
	for {
		var batch []string
		cursor, batch = s.Scan(cursor, "*", 1)
		scanned = append(scanned, batch...)
		if cursor == 0 {
			break
		}
	}
	if len(scanned) != 3 {
		t.Fatalf("expected scan to yield 3 keys across pages, got %v", scanned)
	}

	listed := s.List("user:", 100, 0)
	if len(listed) != 2 {
		t.Fatalf("expected 2 user: prefixed keys, got %v", listed)
	}
}

func TestLpushRpushLrangeLlen(t *testing.T) {
	s := newTestStore(t)

	if err := s.Rpush("todos", "a", "b"); err != nil {
		t.Fatalf("Rpush: %v", err)
	}
	if err := s.Lpush("todos", "z"); err != nil {
		t.Fatalf("Lpush: %v", err)
	}

	n, err := s.Llen("todos")
	if err != nil {
		t.Fatalf("Llen: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected length 3, got %d", n)
	}

	items, err := s.Lrange("todos", 0, -1)
	if err != nil {
		t.Fatalf("Lrange: %v", err)
	}
	want := []any{"z", "a", "b"}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, items)
		}
	}
}

func TestLindexLset(t *testing.T) {
	s := newTestStore(t)

	if err := s.Rpush("todos", "a", "b", "c"); err != nil {
		t.Fatalf("Rpush: %v", err)
	}

	v, ok, err := s.Lindex("todos", -1)
	if err != nil || !ok || v != "c" {
		t.Fatalf("expected (c, true, nil), got (%v, %v, %v)", v, ok, err)
	}

	if err := s.Lset("todos", 1, "B"); err != nil {
		t.Fatalf("Lset: %v", err)
	}
	v, ok, _ = s.Lindex("todos", 1)
	if !ok || v != "B" {
		t.Fatalf("expected updated value B at index 1, got %v", v)
	}

	if err := s.Lset("todos", 99, "x"); err != ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestLpopRpop(t *testing.T) {
	s := newTestStore(t)

	if err := s.Rpush("todos", "a", "b", "c"); err != nil {
		t.Fatalf("Rpush: %v", err)
	}

	v, err := s.Lpop("todos", 1)
	if err != nil || v != "a" {
		t.Fatalf("expected (a, nil), got (%v, %v)", v, err)
	}

	rest, err := s.Rpop("todos", 2)
	if err != nil {
		t.Fatalf("Rpop: %v", err)
	}
	got, ok := rest.([]any)
	if !ok || len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Fatalf("expected [c b], got %v", rest)
	}

	n, _ := s.Llen("todos")
	if n != 0 {
		t.Fatalf("expected empty list after popping all, got len %d", n)
	}
}

func TestListOpOnNonListKeyIsWrongType(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("list:notalist", "scalar"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Rpush("notalist", "x"); err != ErrWrongType {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}
}

func TestLitemsAndLmeta(t *testing.T) {
	s := newTestStore(t)

	if err := s.Rpush("todos", "a", "b"); err != nil {
		t.Fatalf("Rpush: %v", err)
	}

	items, err := s.Litems("todos")
	if err != nil {
		t.Fatalf("Litems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	meta, ok, err := s.Lmeta("todos")
	if err != nil || !ok {
		t.Fatalf("Lmeta: %v ok=%v", err, ok)
	}
	if meta.Type != record.TypeList {
		t.Fatalf("expected list type meta, got %v", meta.Type)
	}
}

func TestSyncWithNoRemoteSucceeds(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	result := s.Sync("manual")
	if !result.Success {
		t.Fatalf("expected successful sync with no remote, got %+v", result)
	}

	status := s.GetStatus()
	if status.State != "idle" {
		t.Fatalf("expected idle state after sync, got %s", status.State)
	}
}

func TestOnSubscribesToSyncEvents(t *testing.T) {
	s := newTestStore(t)

	done := make(chan events.Event, 1)
	unsub := s.On(events.KindSyncFinish, func(ev events.Event) {
		done <- ev
	})
	defer unsub()

	result := s.Sync("manual")
	if !result.Success {
		t.Fatalf("expected successful sync, got %+v", result)
	}

	select {
	case ev := <-done:
		if ev.Reason != "manual" {
			t.Fatalf("expected reason manual, got %s", ev.Reason)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected sync:finish event to be delivered")
	}
}

package gitkv

import (
	"github.com/gitkv-project/gitkv/internal/keyrouter"
	"github.com/gitkv-project/gitkv/internal/listmodel"
	"github.com/gitkv-project/gitkv/internal/record"
)

// listMeta reads the list meta record for name, if any.
func (s *Store) listMeta(name string) *record.Record {
	return s.readRecord(keyrouter.ListMetaKey(name))
}

// ensureListMeta returns the live list meta record for name, creating an
// empty one if absent. Returns ErrWrongType if the key already holds a
// non-list record.
func (s *Store) ensureListMeta(name string) (*record.Record, error) {
	metaKey := keyrouter.ListMetaKey(name)

	if existing := s.readRecord(metaKey); existing != nil && existing.Live() && existing.Type != record.TypeList {
		return nil, ErrWrongType
	}

	meta, err := s.writeRecord(metaKey, func(m map[string]*record.Record) {
		existing, ok := m[metaKey]
		if ok && existing.Live() {
			return
		}
		if ok && !existing.Live() {
			existing.Type = record.TypeList
			existing.Value = []string{}
			existing.UpdatedAt = s.now()
			existing.DeletedAt = nil
			return
		}
		now := s.now()
		m[metaKey] = &record.Record{
			ID:        record.NewID(),
			Key:       metaKey,
			Type:      record.TypeList,
			Value:     []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
	})
	if err != nil {
		return nil, err
	}
	if meta.Type != record.TypeList {
		return nil, ErrWrongType
	}
	return meta, nil
}

// requireListMeta returns the live list meta record for name without
// creating it, erroring WRONGTYPE if the key holds something else and
// returning (nil, nil) if it's simply absent.
func (s *Store) requireListMeta(name string) (*record.Record, error) {
	meta := s.listMeta(name)
	if meta == nil || !meta.Live() {
		return nil, nil
	}
	if meta.Type != record.TypeList {
		return nil, ErrWrongType
	}
	return meta, nil
}

func (s *Store) itemRecord(name, itemID string) *record.Record {
	return s.readRecord(keyrouter.ListItemKey(name, itemID))
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	return i
}

// Lpush inserts each of vs at the head of list name, in argument order (so
// the last argument ends up at the very front, matching Redis LPUSH).
func (s *Store) Lpush(name string, vs ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.ensureListMeta(name)
	if err != nil {
		return err
	}
	order := listmodel.OrderOf(meta)

	touched := map[string]bool{keyrouter.BucketOf(keyrouter.ListMetaKey(name)): true}
	for _, v := range vs {
		id := record.NewID()
		itemKey := keyrouter.ListItemKey(name, id)
		now := s.now()
		if _, err := s.writeRecord(itemKey, func(m map[string]*record.Record) {
			m[itemKey] = record.New(itemKey, v, now)
		}); err != nil {
			return err
		}
		touched[keyrouter.BucketOf(itemKey)] = true
		order = append([]string{id}, order...)
	}

	if err := s.setMetaOrder(name, order); err != nil {
		return err
	}
	s.onMutationSet("lpush", touched)
	return nil
}

// Rpush appends each of vs to the tail of list name, in argument order.
func (s *Store) Rpush(name string, vs ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.ensureListMeta(name)
	if err != nil {
		return err
	}
	order := listmodel.OrderOf(meta)

	touched := map[string]bool{keyrouter.BucketOf(keyrouter.ListMetaKey(name)): true}
	for _, v := range vs {
		id := record.NewID()
		itemKey := keyrouter.ListItemKey(name, id)
		now := s.now()
		if _, err := s.writeRecord(itemKey, func(m map[string]*record.Record) {
			m[itemKey] = record.New(itemKey, v, now)
		}); err != nil {
			return err
		}
		touched[keyrouter.BucketOf(itemKey)] = true
		order = append(order, id)
	}

	if err := s.setMetaOrder(name, order); err != nil {
		return err
	}
	s.onMutationSet("rpush", touched)
	return nil
}

// setMetaOrder rewrites the list meta's order array.
func (s *Store) setMetaOrder(name string, order []string) error {
	metaKey := keyrouter.ListMetaKey(name)
	_, err := s.writeRecord(metaKey, func(m map[string]*record.Record) {
		meta := m[metaKey]
		listmodel.SetOrder(meta, order)
		meta.UpdatedAt = s.now()
	})
	return err
}

// Llen returns the number of items in list name (0 if the list doesn't
// exist).
func (s *Store) Llen(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.requireListMeta(name)
	if err != nil {
		return 0, err
	}
	if meta == nil {
		return 0, nil
	}
	return len(listmodel.OrderOf(meta)), nil
}

// Lrange returns the items at [start, stop] (inclusive, Redis-style),
// supporting negative indices counted from the end.
func (s *Store) Lrange(name string, start, stop int) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.requireListMeta(name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}
	order := listmodel.OrderOf(meta)
	n := len(order)

	start = normalizeIndex(start, n)
	stop = normalizeIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return []any{}, nil
	}

	out := make([]any, 0, stop-start+1)
	for _, id := range order[start : stop+1] {
		if r := s.itemRecord(name, id); r.Live() {
			out = append(out, r.Value)
		}
	}
	return out, nil
}

// Lindex returns the item at index i (negative counts from the end), and
// whether it exists.
func (s *Store) Lindex(name string, i int) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.requireListMeta(name)
	if err != nil {
		return nil, false, err
	}
	if meta == nil {
		return nil, false, nil
	}
	order := listmodel.OrderOf(meta)
	i = normalizeIndex(i, len(order))
	if i < 0 || i >= len(order) {
		return nil, false, nil
	}
	r := s.itemRecord(name, order[i])
	if !r.Live() {
		return nil, false, nil
	}
	return r.Value, true, nil
}

// Lset replaces the value of the item at index i in place, preserving its
// item id. Fails with ErrIndexOutOfRange if i is out of bounds or the list
// is missing.
func (s *Store) Lset(name string, i int, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.requireListMeta(name)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrIndexOutOfRange
	}
	order := listmodel.OrderOf(meta)
	idx := normalizeIndex(i, len(order))
	if idx < 0 || idx >= len(order) {
		return ErrIndexOutOfRange
	}
	itemID := order[idx]
	itemKey := keyrouter.ListItemKey(name, itemID)

	existing := s.itemRecord(name, itemID)
	if !existing.Live() {
		return ErrIndexOutOfRange
	}

	now := s.now()
	if _, err := s.writeRecord(itemKey, func(m map[string]*record.Record) {
		m[itemKey].Touch(v, now)
	}); err != nil {
		return err
	}
	s.onMutationSet("lset", map[string]bool{keyrouter.BucketOf(itemKey): true})
	return nil
}

// Lpop removes and returns up to count items from the head of list name.
// count<=1 returns a single scalar value (or nil); count>1 returns a
// (possibly empty) slice.
func (s *Store) Lpop(name string, count int) (any, error) {
	return s.listPop(name, count, true)
}

// Rpop removes and returns up to count items from the tail of list name.
func (s *Store) Rpop(name string, count int) (any, error) {
	return s.listPop(name, count, false)
}

func (s *Store) listPop(name string, count int, fromHead bool) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= 0 {
		count = 1
	}

	meta, err := s.requireListMeta(name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		if count <= 1 {
			return nil, nil
		}
		return []any{}, nil
	}

	order := listmodel.OrderOf(meta)
	n := count
	if n > len(order) {
		n = len(order)
	}

	var popped []string
	var remaining []string
	if fromHead {
		popped = order[:n]
		remaining = order[n:]
	} else {
		popped = order[len(order)-n:]
		remaining = order[:len(order)-n]
		reverseStrings(popped)
	}

	touched := map[string]bool{keyrouter.BucketOf(keyrouter.ListMetaKey(name)): true}
	values := make([]any, 0, len(popped))
	now := s.now()
	for _, id := range popped {
		itemKey := keyrouter.ListItemKey(name, id)
		r := s.itemRecord(name, id)
		if r.Live() {
			values = append(values, r.Value)
		}
		if _, err := s.writeRecord(itemKey, func(m map[string]*record.Record) {
			if existing, ok := m[itemKey]; ok {
				existing.Delete(now)
			}
		}); err != nil {
			return nil, err
		}
		touched[keyrouter.BucketOf(itemKey)] = true
	}

	if err := s.setMetaOrder(name, remaining); err != nil {
		return nil, err
	}

	reason := "rpop"
	if fromHead {
		reason = "lpop"
	}
	s.onMutationSet(reason, touched)

	if count <= 1 {
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	}
	return values, nil
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// listItem pairs an ordered item's id with its record, for Litems.
type listItem struct {
	ID     string
	Record *record.Record
}

// Litems is a debug accessor returning every live item in name, in list
// order, together with its underlying record (so conflict-loser markers and
// timestamps are visible).
func (s *Store) Litems(name string) ([]listItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.requireListMeta(name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}
	order := listmodel.OrderOf(meta)
	out := make([]listItem, 0, len(order))
	for _, id := range order {
		r := s.itemRecord(name, id)
		if r.Live() {
			out = append(out, listItem{ID: id, Record: r.Clone()})
		}
	}
	return out, nil
}

// Lmeta is a debug accessor returning the list's meta record.
func (s *Store) Lmeta(name string) (*record.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.requireListMeta(name)
	if err != nil {
		return nil, false, err
	}
	if meta == nil {
		return nil, false, nil
	}
	return meta.Clone(), true, nil
}

// onMutationSet is onMutation for operations that touch more than one
// bucket (list ops span the meta bucket and one or more item buckets).
func (s *Store) onMutationSet(reason string, buckets map[string]bool) {
	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	s.onMutation(reason, ids...)
}

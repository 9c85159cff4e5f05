package gitkv

import (
	"github.com/gitkv-project/gitkv/internal/keyrouter"
	"github.com/gitkv-project/gitkv/internal/record"
)

// readRecord returns the record stored at key, if any, live or tombstoned.
func (s *Store) readRecord(key string) *record.Record {
	bucketID := keyrouter.BucketOf(key)
	m := s.buck.Read(bucketID)
	return m[key]
}

// writeRecord rewrites the full bucket containing key after mutating it via
// mutate, returning the resulting record (nil if mutate left it absent).
func (s *Store) writeRecord(key string, mutate func(m map[string]*record.Record)) (*record.Record, error) {
	bucketID := keyrouter.BucketOf(key)
	m := s.buck.Read(bucketID)
	mutate(m)
	if err := s.buck.Write(bucketID, m); err != nil {
		return nil, err
	}
	s.touchIndex(bucketID, m[key])
	return m[key], nil
}

// Get returns the value stored at key, and whether it exists (and is live).
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.readRecord(key)
	if !r.Live() {
		return nil, false
	}
	return r.Value, true
}

// Set stores v at key, creating a new record or touching an existing one.
func (s *Store) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucketID := keyrouter.BucketOf(key)
	_, err := s.writeRecord(key, func(m map[string]*record.Record) {
		now := s.now()
		if existing, ok := m[key]; ok {
			existing.Touch(v, now)
			return
		}
		m[key] = record.New(key, v, now)
	})
	if err != nil {
		return err
	}
	s.onMutation("set", bucketID)
	return nil
}

// Has reports whether key exists and is live.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRecord(key).Live()
}

// Del tombstones key. Deleting an absent key is a no-op.
func (s *Store) Del(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucketID := keyrouter.BucketOf(key)
	_, err := s.writeRecord(key, func(m map[string]*record.Record) {
		r, ok := m[key]
		if !ok || !r.Live() {
			return
		}
		r.Delete(s.now())
	})
	if err != nil {
		return err
	}
	s.onMutation("del", bucketID)
	return nil
}

// Type returns key's record type, and whether key exists (live).
func (s *Store) Type(key string) (record.Type, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.readRecord(key)
	if !r.Live() {
		return "", false
	}
	return r.Type, true
}

// Meta returns the full record stored at key (including tombstones), for
// debugging and inspection.
func (s *Store) Meta(key string) (*record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.readRecord(key)
	if r == nil {
		return nil, false
	}
	return r.Clone(), true
}

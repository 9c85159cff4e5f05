package gitkv

import (
	"context"
	"sort"

	"github.com/gitkv-project/gitkv/internal/globkey"
	"github.com/gitkv-project/gitkv/internal/keyrouter"
)

// liveKeys returns every live, user-addressable key across all buckets,
// sorted. List item keys (the internal list:<name>:item:<id> records) are
// never user-addressable on their own, so they're excluded; a list's single
// addressable key is its meta key, list:<name>.
func (s *Store) liveKeys() []string {
	if s.idx != nil {
		if keys, err := s.idx.Keys(context.Background()); err == nil {
			out := make([]string, 0, len(keys))
			for _, key := range keys {
				if _, _, ok := keyrouter.ParseListItemKey(key); ok {
					continue
				}
				out = append(out, key)
			}
			return out
		}
	}

	ids, err := s.buck.ListBuckets()
	if err != nil {
		return nil
	}
	var out []string
	for _, id := range ids {
		m := s.buck.Read(id)
		for key, r := range m {
			if !r.Live() {
				continue
			}
			if _, _, ok := keyrouter.ParseListItemKey(key); ok {
				continue
			}
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Keys returns every live key matching pattern ("*" and "?" only). An empty
// pattern matches everything.
func (s *Store) Keys(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pattern == "" {
		pattern = "*"
	}
	all := s.liveKeys()
	out := make([]string, 0, len(all))
	for _, k := range all {
		if globkey.Match(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

// Scan pages through live keys matching pattern, count at a time, starting
// at cursor. A returned cursor of 0 means the scan is complete.
func (s *Store) Scan(cursor int, pattern string, count int) (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pattern == "" {
		pattern = "*"
	}
	if count <= 0 {
		count = 100
	}
	if cursor < 0 {
		cursor = 0
	}

	matched := make([]string, 0)
	for _, k := range s.liveKeys() {
		if globkey.Match(pattern, k) {
			matched = append(matched, k)
		}
	}

	if cursor >= len(matched) {
		return 0, nil
	}

	end := cursor + count
	if end >= len(matched) {
		return 0, matched[cursor:]
	}
	return end, matched[cursor:end]
}

// List returns up to limit live keys with the given string prefix, starting
// after offset entries, in sorted order.
func (s *Store) List(prefix string, limit, offset int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	matched := make([]string, 0)
	for _, k := range s.liveKeys() {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			matched = append(matched, k)
		}
	}

	if offset >= len(matched) {
		return nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end]
}

package gitkv

// Mget returns one value per key, in order, with nil for any key that is
// absent or tombstoned.
func (s *Store) Mget(keys []string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		v, ok := s.Get(k)
		if ok {
			out[i] = v
		}
	}
	return out
}

// Mset stores every key/value pair in m. Order is unspecified; callers
// needing a specific key's result of a concurrent mutation should not rely
// on map iteration order.
func (s *Store) Mset(m map[string]any) error {
	for k, v := range m {
		if err := s.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

package core

// Snapshot is the set of natural keys already stored in one table.
// It is loaded once per sync procedure and grows as the procedure inserts,
// so a row repeated within one run is inserted once.
type Snapshot struct {
	keys map[string]struct{}
}

// NewSnapshot builds a snapshot from stored keys.
func NewSnapshot(keys []string) *Snapshot {
	s := &Snapshot{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// Contains reports whether key is already stored.
func (s *Snapshot) Contains(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Add records key as stored.
func (s *Snapshot) Add(key string) {
	s.keys[key] = struct{}{}
}

// Len returns the number of distinct keys.
func (s *Snapshot) Len() int {
	return len(s.keys)
}

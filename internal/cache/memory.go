package cache

import (
	"sync"
	"time"
)

// sweepEvery is the write interval between retention sweeps.
const sweepEvery = 256

// MemoryStore is an in-process Store. Entries past the retention bound are
// swept opportunistically on writes, so the map stays bounded even though
// query keys (search parameter sets, dated trending keys) keep churning.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
	writes  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *MemoryStore) Set(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	s.writes++
	if s.writes%sweepEvery == 0 {
		s.sweepLocked()
	}
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// sweepLocked drops entries older than the retention bound. Every freshness
// window is shorter than the retention, so nothing sweepable is still
// servable.
func (s *MemoryStore) sweepLocked() {
	cutoff := s.now().Add(-retention)
	for key, entry := range s.entries {
		if entry.StoredAt.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

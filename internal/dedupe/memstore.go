package dedupe

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps fingerprints in process memory. Concurrent webhook
// deliveries are serialized by the mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Meta)}
}

func (s *MemoryStore) Seen(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[hash]
	return ok, nil
}

func (s *MemoryStore) Record(ctx context.Context, hash string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[hash] = meta
	s.prune()
	return nil
}

// prune drops entries older than MaxAge and, if still over MaxEntries,
// keeps only the most recent by call timestamp. Caller holds the mutex.
func (s *MemoryStore) prune() {
	cutoff := time.Now().Add(-MaxAge)
	for hash, meta := range s.entries {
		if meta.ProcessedAt.Before(cutoff) {
			delete(s.entries, hash)
		}
	}

	if len(s.entries) <= MaxEntries {
		return
	}
	type keyed struct {
		hash string
		meta Meta
	}
	all := make([]keyed, 0, len(s.entries))
	for hash, meta := range s.entries {
		all = append(all, keyed{hash, meta})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].meta.Timestamp > all[j].meta.Timestamp
	})
	for _, entry := range all[MaxEntries:] {
		delete(s.entries, entry.hash)
	}
}

// Len reports the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

package message

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps dedup history in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	sent map[string]map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sent: make(map[string]map[string]time.Time)}
}

func (s *MemoryStore) Claim(_ context.Context, key, hash string, window time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.sent[key]
	if !ok {
		history = make(map[string]time.Time)
		s.sent[key] = history
	}

	cutoff := now.Add(-window)
	for h, at := range history {
		if !at.After(cutoff) {
			delete(history, h)
		}
	}

	if _, seen := history[hash]; seen {
		return false, nil
	}
	history[hash] = now
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, key, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sent[key], hash)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = make(map[string]map[string]time.Time)
	return nil
}

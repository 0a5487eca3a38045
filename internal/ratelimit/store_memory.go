package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemory keeps failure timestamps per key. Suited to a single instance;
// multi-instance deployments use the redis store so the window is shared.
type InMemory struct {
	mu       sync.Mutex
	failures map[string][]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{failures: make(map[string][]time.Time)}
}

func (s *InMemory) RecordFailure(_ context.Context, key string, ts time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.prune(key, ts, window)
	kept = append(kept, ts)
	s.failures[key] = kept
	return len(kept), nil
}

func (s *InMemory) Count(_ context.Context, key string, ts time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.prune(key, ts, window)
	s.failures[key] = kept
	if len(kept) == 0 {
		delete(s.failures, key)
	}
	return len(kept), nil
}

func (s *InMemory) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, key)
	return nil
}

// prune drops timestamps that slid out of the window. Caller holds the lock.
func (s *InMemory) prune(key string, ts time.Time, window time.Duration) []time.Time {
	cutoff := ts.Add(-window)
	kept := s.failures[key][:0]
	for _, t := range s.failures[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

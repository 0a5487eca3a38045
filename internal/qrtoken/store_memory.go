package qrtoken

import (
	"context"
	"sort"
	"sync"
	"time"

	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
)

// InMemory keeps the token pool in maps under one mutex. The same lock covers
// the create-or-exists check, so the first-scan race behaves exactly like a
// unique constraint: second creator gets ErrDuplicateKey.
type InMemory struct {
	mu      sync.RWMutex
	batches map[domain.BatchID]*Batch
	codes   map[string]*Code
}

func NewInMemory() *InMemory {
	return &InMemory{
		batches: make(map[domain.BatchID]*Batch),
		codes:   make(map[string]*Code),
	}
}

func (s *InMemory) CreateBatch(_ context.Context, batch *Batch, codes []*Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		if _, exists := s.codes[code.Token]; exists {
			return sentinel.ErrDuplicateKey
		}
	}
	b := *batch
	s.batches[batch.ID] = &b
	for _, code := range codes {
		clone := *code
		s.codes[code.Token] = &clone
	}
	return nil
}

func (s *InMemory) CreateCode(_ context.Context, code *Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[code.Token]; exists {
		return sentinel.ErrDuplicateKey
	}
	clone := *code
	s.codes[code.Token] = &clone
	return nil
}

func (s *InMemory) FindCode(_ context.Context, token string) (*Code, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.codes[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *code
	return &clone, nil
}

func (s *InMemory) FillCode(_ context.Context, token string, filledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[token]
	if !ok {
		return sentinel.ErrNotFound
	}
	if code.Status != StatusGenerated {
		return sentinel.ErrConflict
	}
	code.Status = StatusFilled
	code.FilledAt = &filledAt
	return nil
}

func (s *InMemory) FindBatch(_ context.Context, id domain.BatchID) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *batch
	return &clone, nil
}

func (s *InMemory) ListBatches(_ context.Context) ([]*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Batch, 0, len(s.batches))
	for _, b := range s.batches {
		clone := *b
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

// Stats counts child codes by status under the read lock, so a concurrent
// bind is either fully counted or not counted at all.
func (s *InMemory) Stats(_ context.Context, id domain.BatchID) (*BatchStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.batches[id]; !ok {
		return nil, sentinel.ErrNotFound
	}
	stats := &BatchStats{BatchID: id}
	for _, code := range s.codes {
		if code.BatchID == nil || *code.BatchID != id {
			continue
		}
		if code.Status == StatusFilled {
			stats.Used++
		} else {
			stats.Unused++
		}
	}
	return stats, nil
}

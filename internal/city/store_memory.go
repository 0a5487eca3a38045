package city

import (
	"context"
	"sort"
	"sync"

	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
)

// InMemory keeps cities in a map. It intentionally favors clarity over
// performance; the city table is small.
type InMemory struct {
	mu     sync.RWMutex
	cities map[domain.CityID]*City
}

func NewInMemory() *InMemory {
	return &InMemory{cities: make(map[domain.CityID]*City)}
}

func (s *InMemory) Create(_ context.Context, c *City) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cities {
		if existing.Code == c.Code {
			return sentinel.ErrDuplicateKey
		}
	}
	clone := *c
	s.cities[c.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.CityID) (*City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cities[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *InMemory) List(_ context.Context) ([]*City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*City, 0, len(s.cities))
	for _, c := range s.cities {
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, c *City) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cities[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.cities {
		if id != c.ID && existing.Code == c.Code {
			return sentinel.ErrDuplicateKey
		}
	}
	clone := *c
	s.cities[c.ID] = &clone
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.CityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cities[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.cities, id)
	return nil
}

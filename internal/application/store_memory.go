package application

import (
	"context"
	"sort"
	"sync"

	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
)

// InMemory keeps applications in maps, favoring clarity over performance.
type InMemory struct {
	mu      sync.RWMutex
	apps    map[domain.ApplicationID]*Application
	byToken map[string]domain.ApplicationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		apps:    make(map[domain.ApplicationID]*Application),
		byToken: make(map[string]domain.ApplicationID),
	}
}

func (s *InMemory) Create(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[a.ID]; exists {
		return sentinel.ErrDuplicateKey
	}
	if _, exists := s.byToken[a.TrackingToken]; exists {
		return sentinel.ErrDuplicateKey
	}
	clone := *a
	s.apps[a.ID] = &clone
	s.byToken[a.TrackingToken] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ApplicationID) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *InMemory) FindByTrackingToken(_ context.Context, token string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.apps[id]
	return &clone, nil
}

// Decide is the conditional write backing the one-way transition: it only
// lands if the stored row is still pending.
func (s *InMemory) Decide(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.apps[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != StatusPending {
		return sentinel.ErrConflict
	}
	clone := *a
	s.apps[a.ID] = &clone
	return nil
}

func (s *InMemory) List(_ context.Context, scope []domain.CityID, status Status) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	visible := func(domain.CityID) bool { return true }
	if scope != nil {
		allowed := make(map[domain.CityID]bool, len(scope))
		for _, c := range scope {
			allowed[c] = true
		}
		visible = func(c domain.CityID) bool { return allowed[c] }
	}
	out := make([]*Application, 0)
	for _, a := range s.apps {
		if !visible(a.CityID) {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) CountByCity(_ context.Context, cityID domain.CityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.apps {
		if a.CityID == cityID {
			n++
		}
	}
	return n, nil
}

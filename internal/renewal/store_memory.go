package renewal

import (
	"context"
	"sort"
	"sync"

	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
)

// InMemory keeps renewal requests in a map. The single mutex doubles as the
// partial unique index postgres uses for the one-pending-per-member rule.
type InMemory struct {
	mu       sync.RWMutex
	requests map[domain.RenewalRequestID]*Request
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[domain.RenewalRequestID]*Request)}
}

func (s *InMemory) Create(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.MemberID == r.MemberID && existing.Status == StatusPending {
			return sentinel.ErrDuplicateKey
		}
	}
	clone := *r
	s.requests[r.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.RenewalRequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *InMemory) Decide(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != StatusPending {
		return sentinel.ErrConflict
	}
	clone := *r
	s.requests[r.ID] = &clone
	return nil
}

func (s *InMemory) ListPending(_ context.Context, scope []domain.CityID) ([]*Request, error) {
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
	out := make([]*Request, 0)
	for _, r := range s.requests {
		if r.Status != StatusPending || !visible(r.CityID) {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByMember(_ context.Context, memberID domain.MemberID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Request, 0)
	for _, r := range s.requests {
		if r.MemberID != memberID {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

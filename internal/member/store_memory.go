package member

import (
	"context"
	"sort"
	"sync"

	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
)

// InMemory keeps members in maps, favoring clarity over performance.
type InMemory struct {
	mu      sync.RWMutex
	members map[domain.MemberID]*Member
	byToken map[string]domain.MemberID
	seq     int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		members: make(map[domain.MemberID]*Member),
		byToken: make(map[string]domain.MemberID),
	}
}

func (s *InMemory) Create(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[m.ID]; exists {
		return sentinel.ErrDuplicateKey
	}
	if _, exists := s.byToken[m.QRToken]; exists {
		return sentinel.ErrDuplicateKey
	}
	clone := *m
	s.members[m.ID] = &clone
	s.byToken[m.QRToken] = m.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.MemberID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (s *InMemory) FindByToken(_ context.Context, qrToken string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[qrToken]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.members[id]
	return &clone, nil
}

func (s *InMemory) FindByApplication(_ context.Context, appID domain.ApplicationID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ApplicationID == appID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *m
	s.members[m.ID] = &clone
	return nil
}

func (s *InMemory) List(_ context.Context, scope []domain.CityID) ([]*Member, error) {
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
	out := make([]*Member, 0)
	for _, m := range s.members {
		if !visible(m.CityID) {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberNo < out[j].MemberNo })
	return out, nil
}

func (s *InMemory) CountByCity(_ context.Context, cityID domain.CityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.members {
		if m.CityID == cityID {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) NextMemberNo(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

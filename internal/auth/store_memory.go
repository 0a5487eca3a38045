package auth

import (
	"context"
	"sort"
	"strings"
	"sync"

	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]*Account
	byEmail  map[string]domain.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[domain.AccountID]*Account),
		byEmail:  make(map[string]domain.AccountID),
	}
}

func (s *InMemory) Create(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(a.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrDuplicateKey
	}
	clone := cloneAccount(a)
	s.accounts[a.ID] = clone
	s.byEmail[email] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AccountID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

func (s *InMemory) Update(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(stored.Email))
	s.accounts[a.ID] = cloneAccount(a)
	s.byEmail[strings.ToLower(a.Email)] = a.ID
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func cloneAccount(a *Account) *Account {
	clone := *a
	clone.Cities = append([]domain.CityID(nil), a.Cities...)
	return &clone
}

package memory

import (
	"context"
	"sync"

	"movie-trivia-service/internal/domain"
)

// AccountStore indexes accounts by id and by email.
type AccountStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (s *AccountStore) Create(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[account.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.byID[account.ID] = account
	s.byEmail[account.Email] = account.ID
	return nil
}

func (s *AccountStore) ByEmail(_ context.Context, email string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *AccountStore) ByID(_ context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

package database

import (
	"context"
	"sync"

	"code-sprint/internal/models"
)

// MemoryUserStore keeps accounts in process, for STORE=memory and tests.
type MemoryUserStore struct {
	mu      sync.Mutex
	nextID  int
	byEmail map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{nextID: 1, byEmail: make(map[string]models.User)}
}

func (s *MemoryUserStore) CreateUser(_ context.Context, email, passwordHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return 0, models.ErrEmailTaken
	}
	u := models.User{ID: s.nextID, Email: email, PasswordHash: passwordHash}
	s.byEmail[email] = u
	s.nextID++
	return u.ID, nil
}

func (s *MemoryUserStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

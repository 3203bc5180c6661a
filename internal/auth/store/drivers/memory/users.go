package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

// Users is an in-memory user directory.
type Users struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUsers() *Users {
	return &Users{users: make(map[string]domain.User)}
}

func (s *Users) FindBySubject(_ context.Context, subject string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[subject]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	u.Roles = slices.Clone(u.Roles)
	return u, nil
}

func (s *Users) Create(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Subject]; ok {
		return store.ErrAlreadyExists
	}
	u.Roles = slices.Clone(u.Roles)
	s.users[u.Subject] = u
	return nil
}

func (s *Users) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

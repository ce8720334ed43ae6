package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/andrisetiaw/go-storefront/internal/login"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]login.User // by username
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]login.User)}
}

func (s *UserStore) Put(u login.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (login.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return login.User{}, errors.New("user not found")
	}
	return u, nil
}

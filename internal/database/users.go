package database

import (
	"cagchat/internal/errs"
	"cagchat/internal/utils"
	"context"
	"fmt"
	"sync"
)

// NewUser is a signup request whose password has already been hashed.
type NewUser struct {
	Name           string
	Email          string
	Country        string
	PasswordDigest string
	Purpose        *string
}

// UserStore keeps user records keyed by email.
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]utils.User
	nextID int64
}

var _ UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{
		users:  make(map[string]utils.User),
		nextID: 1,
	}
}

// Create checks the email, allocates the next id and inserts the record in
// one critical section.
func (s *UserStore) Create(_ context.Context, u NewUser) (utils.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Email]; exists {
		return utils.User{}, fmt.Errorf("user %s: %w", u.Email, errs.ErrAlreadyExists)
	}
	user := utils.User{
		ID:             s.nextID,
		Name:           u.Name,
		Email:          u.Email,
		Country:        u.Country,
		PasswordDigest: u.PasswordDigest,
		Purpose:        u.Purpose,
	}
	s.users[u.Email] = user
	s.nextID++
	return user, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (utils.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return utils.User{}, errs.ErrNotFound
	}
	return user, nil
}

func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *UserStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]utils.User)
}

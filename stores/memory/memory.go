// Package memory provides an in-process UserStore for tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/panyam/authgate"
)

// Store keeps users in a mutex-guarded map keyed by email. Safe for
// concurrent use; creation is atomic under the lock, so duplicate-email
// races resolve to exactly one row.
type Store struct {
	mu      sync.RWMutex
	byEmail map[string]*authgate.User
}

func New() *Store {
	return &Store{byEmail: make(map[string]*authgate.User)}
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authgate.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[email]
	if !ok {
		return nil, authgate.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*authgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, authgate.ErrEmailTaken
	}

	now := time.Now()
	user := &authgate.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Profile:      map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byEmail[email] = user
	return user.Clone(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, email string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byEmail[email]
	if !ok {
		return authgate.ErrUserNotFound
	}
	if user.Profile == nil {
		user.Profile = map[string]string{}
	}
	for k, v := range fields {
		user.Profile[k] = v
	}
	user.UpdatedAt = time.Now()
	return nil
}

package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"custodia.org/internal/ids"
)

// Store describes persistence operations required by the identity subsystem.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int, error)
}

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string // email -> id
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty identity store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *InMemory) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.TrimSpace(strings.ToLower(u.Email))
	if _, ok := s.byEmail[email]; ok {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = email
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[email] = u.ID
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.TrimSpace(strings.ToLower(email))]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Lookup resolves account display fields for request listings.
func (s *InMemory) Lookup(ctx context.Context, userID string) (string, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return "", "", false
	}
	return u.Name, u.Email, true
}

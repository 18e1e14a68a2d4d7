package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/cliptube/backend/internal/models"
)

// NewInMemoryUserStore returns a UserStore backed by an in-memory map.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]models.User)}
}

// InMemoryUserStore implements UserStore for tests and local development.
// RotateRefreshToken performs its compare and swap under the store lock, so
// it has the same at-most-one-winner behavior as the SQL implementation.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// Add inserts or replaces a user record.
func (s *InMemoryUserStore) Add(user models.User) {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// FindByID retrieves a user by identifier.
func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	user, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

// FindByIdentifier resolves a user by username or email.
func (s *InMemoryUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	needle := strings.ToLower(strings.TrimSpace(identifier))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == needle || strings.ToLower(user.Email) == needle {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// SetRefreshToken overwrites the stored refresh token unconditionally.
func (s *InMemoryUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

// RotateRefreshToken swaps the stored token only when it matches expected.
func (s *InMemoryUserStore) RotateRefreshToken(_ context.Context, userID, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if user.RefreshToken != expected {
		return ErrTokenReused
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

// StoredRefreshToken reports the current refresh token for a user. Useful for tests.
func (s *InMemoryUserStore) StoredRefreshToken(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID].RefreshToken
}

package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/models"
)

// UserStore is the persistence contract the token lifecycle depends on.
// RotateRefreshToken must be an atomic compare-and-swap on the stored token:
// implementations may not read the current value and write separately.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, expected, next string) error
}

// Manager drives the session lifecycle: one stored refresh token per user,
// overwritten on login and rotated on every successful refresh.
type Manager struct {
	codec *Codec
	users UserStore
}

// NewManager constructs a Manager issuing tokens through the provided codec.
func NewManager(codec *Codec, users UserStore) *Manager {
	if codec == nil {
		panic("auth: codec must not be nil")
	}
	if users == nil {
		panic("auth: user store must not be nil")
	}
	return &Manager{codec: codec, users: users}
}

// Issue creates a fresh access/refresh pair for the user and persists the
// refresh token, invalidating any previously active session.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	tokens, err := m.sign(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.SetRefreshToken(ctx, userID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Login resolves the user by username or email, verifies the password, and
// issues a new session. The bcrypt comparison runs before any token state is
// touched, so a failed login leaves the current session intact.
func (m *Manager) Login(ctx context.Context, identifier, password string) (models.SessionTokens, models.User, error) {
	user, err := m.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return models.SessionTokens{}, models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.SessionTokens{}, models.User{}, ErrInvalidCredentials
	}

	tokens, err := m.Issue(ctx, user.ID)
	if err != nil {
		return models.SessionTokens{}, models.User{}, err
	}

	return tokens, user, nil
}

// Refresh exchanges a refresh token for a rotated pair. The presented token
// must exactly match the stored one; the swap is a single conditional update
// so concurrent refreshes on the same stale token cannot both succeed.
func (m *Manager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	if presented == "" {
		return models.SessionTokens{}, ErrUnauthenticated
	}

	userID, err := m.codec.Verify(presented, TokenKindRefresh)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if _, err := m.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.SessionTokens{}, ErrInvalidToken
		}
		return models.SessionTokens{}, err
	}

	tokens, err := m.sign(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.RotateRefreshToken(ctx, userID, presented, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Logout clears the stored refresh token, terminating the session. Calling it
// with no active session is a no-op.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	return m.users.SetRefreshToken(ctx, userID, "")
}

// VerifyAccess validates an access token and returns the user it belongs to.
func (m *Manager) VerifyAccess(token string) (string, error) {
	return m.codec.Verify(token, TokenKindAccess)
}

func (m *Manager) sign(userID string) (models.SessionTokens, error) {
	access, accessExp, err := m.codec.Sign(userID, TokenKindAccess)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refresh, refreshExp, err := m.codec.Sign(userID, TokenKindRefresh)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

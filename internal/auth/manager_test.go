package auth

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/models"
)

func newTestManager(t *testing.T) (*Manager, *InMemoryUserStore) {
	t.Helper()
	codec, err := NewCodec("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	store := NewInMemoryUserStore()
	return NewManager(codec, store), store
}

func addUser(t *testing.T, store *InMemoryUserStore, id, username, password string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.Add(models.User{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
	})
}

func TestManagerIssuePersistsRefreshToken(t *testing.T) {
	manager, store := newTestManager(t)
	addUser(t, store, "user-1", "alice", "password123")

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if stored := store.StoredRefreshToken("user-1"); stored != tokens.RefreshToken {
		t.Fatalf("expected refresh token to be persisted, stored %q", stored)
	}
}

func TestManagerIssueOverwritesPriorSession(t *testing.T) {
	manager, store := newTestManager(t)
	addUser(t, store, "user-1", "alice", "password123")

	first, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue again: %v", err)
	}

	if store.StoredRefreshToken("user-1") != second.RefreshToken {
		t.Fatal("expected second session to replace the first")
	}
	if _, err := manager.Refresh(context.Background(), first.RefreshToken); err != ErrTokenReused {
		t.Fatalf("expected token reuse error for displaced session got %v", err)
	}
}

func TestManagerLogin(t *testing.T) {
	manager, store := newTestManager(t)
	addUser(t, store, "user-1", "alice", "password123")

	tokens, user, err := manager.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("expected user-1 got %q", user.ID)
	}
	if tokens.RefreshToken == "" {
		t.Fatal("expected refresh token")
	}

	if _, _, err := manager.Login(context.Background(), "alice@example.com", "password123"); err != nil {
		t.Fatalf("login by email: %v", err)
	}

	if _, _, err := manager.Login(context.Background(), "alice", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials got %v", err)
	}
	if _, _, err := manager.Login(context.Background(), "nobody", "password123"); err != ErrUserNotFound {
		t.Fatalf("expected user not found got %v", err)
	}
}

func TestManagerRefreshRotates(t *testing.T) {
	manager, store := newTestManager(t)
	addUser(t, store, "user-1", "alice", "password123")

	tokens, _, err := manager.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if store.StoredRefreshToken("user-1") != rotated.RefreshToken {
		t.Fatal("expected rotated token to be persisted")
	}

	// The consumed token must be rejected from now on.
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrTokenReused {
		t.Fatalf("expected token reuse error got %v", err)
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, store := newTestManager(t)
	addUser(t, store, "user-1", "alice", "password123")

	if _, err := manager.Refresh(context.Background(), ""); err != ErrUnauthenticated {
		t.Fatalf("expected unauthenticated got %v", err)
	}
	if _, err := manager.Refresh(context.Background(), "not-a-token"); err != ErrInvalidToken {
		t.Fatalf("expected invalid token got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// An access token is not accepted in place of a refresh token.
	if _, err := manager.Refresh(context.Background(), tokens.AccessToken); err != ErrInvalidToken {
		t.Fatalf("expected invalid token for access token got %v", err)
	}
}

func TestManagerLogoutClearsSession(t *testing.T) {
	manager, store := newTestManager(t)
	addUser(t, store, "user-1", "alice", "password123")

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := manager.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if store.StoredRefreshToken("user-1") != "" {
		t.Fatal("expected refresh token to be cleared")
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrTokenReused {
		t.Fatalf("expected refresh after logout to fail got %v", err)
	}

	// Logout is idempotent.
	if err := manager.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
}

func TestManagerConcurrentRefreshSingleWinner(t *testing.T) {
	manager, store := newTestManager(t)
	addUser(t, store, "user-1", "alice", "password123")

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const attempts = 8
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := manager.Refresh(context.Background(), tokens.RefreshToken)
			results <- err
		}()
	}

	var succeeded, reused int
	for i := 0; i < attempts; i++ {
		switch err := <-results; err {
		case nil:
			succeeded++
		case ErrTokenReused:
			reused++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Fatalf("expected exactly one refresh to win, got %d", succeeded)
	}
	if reused != attempts-1 {
		t.Fatalf("expected %d reuse failures, got %d", attempts-1, reused)
	}
}

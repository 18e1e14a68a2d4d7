package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
	"github.com/cliptube/backend/internal/storage"
)

// memUserStore backs the handler tests with an in-memory user table. It
// implements both the handler persistence contract and the session manager's
// token store, so the real token lifecycle runs end to end against it.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]models.User)}
}

func (s *memUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	needle := strings.ToLower(strings.TrimSpace(identifier))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == needle || strings.ToLower(user.Email) == needle {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	needle := strings.ToLower(strings.TrimSpace(username))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == needle {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *memUserStore) UpdateProfile(_ context.Context, userID, fullName, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if id != userID && strings.EqualFold(existing.Email, email) {
			return repositories.ErrConflict
		}
	}
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.FullName = fullName
	user.Email = email
	s.users[userID] = user
	return nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return s.mutate(userID, func(u *models.User) { u.Password = passwordHash })
}

func (s *memUserStore) UpdateAvatar(_ context.Context, userID, url string) error {
	return s.mutate(userID, func(u *models.User) { u.AvatarURL = url })
}

func (s *memUserStore) UpdateCoverImage(_ context.Context, userID, url string) error {
	return s.mutate(userID, func(u *models.User) { u.CoverImageURL = url })
}

func (s *memUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	return s.mutate(userID, func(u *models.User) { u.RefreshToken = token })
}

func (s *memUserStore) RotateRefreshToken(_ context.Context, userID, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	if user.RefreshToken != expected {
		return auth.ErrTokenReused
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

func (s *memUserStore) mutate(userID string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	fn(&user)
	s.users[userID] = user
	return nil
}

func (s *memUserStore) get(t *testing.T, userID string) models.User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		t.Fatalf("user %s not found in store", userID)
	}
	return user
}

// memVideoStore is an in-memory VideoStore.
type memVideoStore struct {
	mu     sync.Mutex
	videos map[string]models.Video
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{videos: make(map[string]models.Video)}
}

func (s *memVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; ok {
		return repositories.ErrConflict
	}
	s.videos[video.ID] = video
	return nil
}

func (s *memVideoStore) Get(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *memVideoStore) ListPublished(_ context.Context) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	published := make([]models.Video, 0, len(s.videos))
	for _, video := range s.videos {
		if video.IsPublished {
			published = append(published, video)
		}
	}
	sort.Slice(published, func(i, j int) bool {
		return published[i].CreatedAt.After(published[j].CreatedAt)
	})
	return published, nil
}

func (s *memVideoStore) UpdateDetails(_ context.Context, id, title, description string, isPublished bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Title = title
	video.Description = description
	video.IsPublished = isPublished
	s.videos[id] = video
	return nil
}

func (s *memVideoStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.ViewCount++
	s.videos[id] = video
	return nil
}

func (s *memVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

// memSubscriptionStore is an in-memory SubscriptionStore. It intentionally
// allows duplicate rows for the same pair, matching the SQL schema.
type memSubscriptionStore struct {
	mu    sync.Mutex
	rows  []models.Subscription
	users *memUserStore
}

func newMemSubscriptionStore(users *memUserStore) *memSubscriptionStore {
	return &memSubscriptionStore{users: users}
}

func (s *memSubscriptionStore) Create(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, sub)
	return nil
}

func (s *memSubscriptionStore) Exists(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.SubscriberID == subscriberID && row.ChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memSubscriptionStore) Delete(_ context.Context, subscriberID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	removed := 0
	for _, row := range s.rows {
		if row.SubscriberID == subscriberID && row.ChannelID == channelID {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	if removed == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (s *memSubscriptionStore) ListChannels(ctx context.Context, subscriberID string) ([]models.User, error) {
	return s.collect(ctx, func(row models.Subscription) (string, bool) {
		return row.ChannelID, row.SubscriberID == subscriberID
	})
}

func (s *memSubscriptionStore) ListSubscribers(ctx context.Context, channelID string) ([]models.User, error) {
	return s.collect(ctx, func(row models.Subscription) (string, bool) {
		return row.SubscriberID, row.ChannelID == channelID
	})
}

func (s *memSubscriptionStore) collect(ctx context.Context, pick func(models.Subscription) (string, bool)) ([]models.User, error) {
	s.mu.Lock()
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, row := range s.rows {
		id, ok := pick(row)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	s.mu.Unlock()

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *memSubscriptionStore) Counts(_ context.Context, userID string) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subscribers := make(map[string]bool)
	channels := make(map[string]bool)
	for _, row := range s.rows {
		if row.ChannelID == userID {
			subscribers[row.SubscriberID] = true
		}
		if row.SubscriberID == userID {
			channels[row.ChannelID] = true
		}
	}
	return int64(len(subscribers)), int64(len(channels)), nil
}

// fakeMediaRelay records relayed uploads and can be flipped into a failing
// state to exercise upload error paths.
type fakeMediaRelay struct {
	mu      sync.Mutex
	uploads []string
	fail    bool
}

func (f *fakeMediaRelay) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return "", fmt.Errorf("%w: %s: host rejected object", storage.ErrUpload, key)
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", fmt.Errorf("%w: %s: %v", storage.ErrUpload, key, err)
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, key)
	f.mu.Unlock()
	return "https://media.test/" + key, nil
}

func (f *fakeMediaRelay) setFailing(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeMediaRelay) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// testEnv bundles the fully wired HTTP surface with direct access to the
// backing fakes.
type testEnv struct {
	mux   *http.ServeMux
	users *memUserStore
	vids  *memVideoStore
	subs  *memSubscriptionStore
	media *fakeMediaRelay
	mgr   *auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	codec, err := auth.NewCodec("handler-test-secret", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewCodec returned error: %v", err)
	}

	users := newMemUserStore()
	manager := auth.NewManager(codec, users)
	vids := newMemVideoStore()
	subs := newMemSubscriptionStore(users)
	media := &fakeMediaRelay{}

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Users:         users,
		Sessions:      manager,
		Videos:        vids,
		Subscriptions: subs,
		Media:         media,
		Verifier:      manager,
	})

	return &testEnv{mux: mux, users: users, vids: vids, subs: subs, media: media, mgr: manager}
}

// addUser seeds a user with a bcrypt-hashed password and returns the record.
func (e *testEnv) addUser(t *testing.T, username, email, password string) models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.User{
		ID:        "user-" + username,
		Username:  username,
		Email:     email,
		FullName:  "Test " + username,
		Password:  string(hashed),
		AvatarURL: "https://media.test/avatars/" + username + ".png",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

// login issues a session for the user and returns the token pair.
func (e *testEnv) login(t *testing.T, userID string) models.SessionTokens {
	t.Helper()
	tokens, err := e.mgr.Issue(context.Background(), userID)
	if err != nil {
		t.Fatalf("issue session for %s: %v", userID, err)
	}
	return tokens
}

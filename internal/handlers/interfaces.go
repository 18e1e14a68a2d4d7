package handlers

import (
	"context"
	"io"

	"github.com/cliptube/backend/internal/models"
)

// UserStore captures the persistence operations required by the HTTP handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateProfile(ctx context.Context, userID, fullName, email string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAvatar(ctx context.Context, userID, url string) error
	UpdateCoverImage(ctx context.Context, userID, url string) error
}

// SessionManager drives the token lifecycle for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Login(ctx context.Context, identifier, password string) (models.SessionTokens, models.User, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
}

// VideoStore captures persistence for uploaded videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	Get(ctx context.Context, id string) (models.Video, error)
	ListPublished(ctx context.Context) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id, title, description string, isPublished bool) error
	IncrementViews(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, sub models.Subscription) error
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	Delete(ctx context.Context, subscriberID, channelID string) error
	ListChannels(ctx context.Context, subscriberID string) ([]models.User, error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.User, error)
	Counts(ctx context.Context, userID string) (subscribers, subscribedTo int64, err error)
}

// MediaRelay uploads binary assets to the media host and returns canonical URLs.
type MediaRelay interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

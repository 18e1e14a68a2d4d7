package models

import "time"

// User represents an account on the ClipTube platform. Password holds the
// bcrypt hash, never the plaintext. RefreshToken is the single currently
// valid refresh token for the account, empty when no session is active.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Video is an uploaded clip owned by a user.
type Video struct {
	ID              string
	OwnerID         string
	VideoURL        string
	ThumbnailURL    string
	Title           string
	Description     string
	DurationSeconds float64
	ViewCount       int64
	IsPublished     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Subscription links a subscriber to the channel they follow. The pair
// carries no uniqueness constraint, so duplicate rows are representable.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

package repositories

import "errors"

var (
	// ErrNotFound indicates no user, video, or subscription row matched.
	ErrNotFound = errors.New("repositories: record not found")
	// ErrConflict indicates the write would violate a uniqueness constraint,
	// typically a taken username or email.
	ErrConflict = errors.New("repositories: record conflict")
)

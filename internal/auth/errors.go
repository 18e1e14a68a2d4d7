package auth

import "errors"

var (
	// ErrUnauthenticated indicates no token was presented at all.
	ErrUnauthenticated = errors.New("authentication token required")
	// ErrInvalidToken indicates the token failed signature verification, is
	// expired, or references a user that no longer exists.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTokenReused indicates a refresh token that has already been rotated
	// out was presented again.
	ErrTokenReused = errors.New("refresh token has been superseded")
	// ErrInvalidCredentials indicates a password mismatch during login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates the identifier does not resolve to an account.
	ErrUserNotFound = errors.New("user not found")
)

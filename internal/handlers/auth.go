package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const maxRegisterFormBytes = 32 << 20 // avatar plus optional cover image

// AuthHandler implements registration and session endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Media    MediaRelay
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

// Register handles POST /api/v1/auth/register requests. The request is
// multipart: text fields plus a required avatar file and an optional cover
// image. Both uploads complete before the user row is written, so a relay
// failure aborts registration with nothing persisted.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if h.Users == nil || h.Sessions == nil || h.Media == nil {
		logger.Error("registration dependencies unavailable",
			"hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil, "hasMedia", h.Media != nil)
		respondError(ctx, w, http.StatusInternalServerError, "registration services unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxRegisterFormBytes); err != nil {
		logger.Warn("invalid registration payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullname"))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	if fullName == "" || username == "" || email == "" || strings.TrimSpace(password) == "" {
		logger.Warn("registration missing required fields", "username", username, "email", email)
		respondError(ctx, w, http.StatusBadRequest, "fullname, username, email, and password are required")
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		logger.Warn("registration invalid email", "email", email, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	for _, identifier := range []string{username, email} {
		if _, err := h.Users.FindByIdentifier(ctx, identifier); err == nil {
			logger.Warn("registration duplicate identity", "identifier", identifier)
			respondError(ctx, w, http.StatusConflict, "username or email already registered")
			return
		} else if !errors.Is(err, auth.ErrUserNotFound) {
			logger.Error("registration user lookup failed", "error", err, "identifier", identifier)
			respondError(ctx, w, http.StatusInternalServerError, "unable to verify existing accounts")
			return
		}
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		logger.Warn("registration missing avatar", "username", username)
		respondError(ctx, w, http.StatusBadRequest, "avatar image is required")
		return
	}
	defer avatarFile.Close()

	coverFile, coverHeader, err := r.FormFile("coverImage")
	hasCover := err == nil
	if hasCover {
		defer coverFile.Close()
	} else if !errors.Is(err, http.ErrMissingFile) {
		logger.Warn("registration invalid cover image", "username", username, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid cover image upload")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("registration failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	avatarURL, err := uploadMedia(ctx, h.Media, "avatars", avatarFile, avatarHeader)
	if err != nil {
		logger.Error("registration avatar upload failed", "error", err, "username", username)
		respondError(ctx, w, http.StatusBadGateway, "media upload failed")
		return
	}

	var coverURL string
	if hasCover {
		coverURL, err = uploadMedia(ctx, h.Media, "covers", coverFile, coverHeader)
		if err != nil {
			// The avatar already reached the media host, but no user row
			// exists yet; failing here keeps the store consistent.
			logger.Error("registration cover upload failed", "error", err, "username", username)
			respondError(ctx, w, http.StatusBadGateway, "media upload failed")
			return
		}
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		Password:      string(hashed),
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("registration conflict", "username", username)
			respondError(ctx, w, http.StatusConflict, "username or email already registered")
			return
		}
		logger.Error("registration failed to create user", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"user": profileOf(user)})
}

// Login handles POST /api/v1/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		logger.Warn("login missing credentials")
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	tokens, user, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			logger.Warn("login unknown user", "identifier", identifier)
			respondError(ctx, w, http.StatusNotFound, "user not found")
		case errors.Is(err, auth.ErrInvalidCredentials):
			logger.Warn("login password mismatch", "identifier", identifier)
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		default:
			logger.Error("login failed", "error", err, "identifier", identifier)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		}
		return
	}

	setAuthCookies(w, r, tokens)
	respondJSON(ctx, w, http.StatusOK, authResponse{User: profileOf(user), Tokens: tokensOf(tokens)})
}

// Logout handles POST /api/v1/auth/logout requests. The route is wrapped in
// the auth middleware, so the caller is already verified.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Sessions.Logout(ctx, userID); err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		logger.Error("logout failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to end session")
		return
	}

	clearAuthCookies(w, r)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Refresh handles POST /api/v1/auth/refresh requests. The refresh token is
// read from the session cookie first, then from the JSON body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "refresh") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many refresh attempts")
		return
	}

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "session service unavailable")
		return
	}

	token := ""
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnauthenticated):
			logger.Warn("refresh without token")
			respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		case errors.Is(err, auth.ErrTokenReused):
			logger.Warn("stale refresh token presented")
			respondError(ctx, w, http.StatusUnauthorized, "refresh token has been superseded")
		case errors.Is(err, auth.ErrInvalidToken):
			logger.Warn("invalid refresh token presented")
			respondError(ctx, w, http.StatusUnauthorized, "invalid or expired refresh token")
		default:
			logger.Error("refresh failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	setAuthCookies(w, r, tokens)
	respondJSON(ctx, w, http.StatusOK, map[string]any{"tokens": tokensOf(tokens)})
}

// ChangePassword handles POST /api/v1/auth/password requests.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid change password payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("change password lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify account")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		logger.Warn("change password mismatch", "userId", userID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("change password hash failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		logger.Error("change password update failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update password")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "password updated"})
}

// uploadMedia relays a multipart file to the media host under a generated key
// and returns the canonical URL.
func uploadMedia(ctx context.Context, media MediaRelay, prefix string, file multipart.File, header *multipart.FileHeader) (string, error) {
	ctx, span := logging.StartSpan(ctx, "media upload "+prefix)
	defer span.End()

	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), strings.ToLower(path.Ext(header.Filename)))
	return media.Upload(ctx, key, file, header.Header.Get("Content-Type"))
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type authResponse struct {
	User   userProfileResponse `json:"user"`
	Tokens tokensResponse      `json:"tokens"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
)

// ProfileHandler implements profile read and mutation endpoints.
type ProfileHandler struct {
	Users         UserStore
	Media         MediaRelay
	Subscriptions SubscriptionStore
}

// Me handles GET and PATCH /api/v1/users/me requests.
func (h ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.currentProfile(w, r)
	case http.MethodPatch:
		h.updateProfile(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ProfileHandler) currentProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.UserIDFromContext(ctx)
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("profile lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": profileOf(user)})
}

func (h ProfileHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if fullName == "" || email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullname and email are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.Users.UpdateProfile(ctx, userID, fullName, email); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already registered")
			return
		}
		logger.Error("profile update failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("profile reload failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load updated profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": profileOf(user)})
}

// UpdateAvatar handles PUT /api/v1/users/me/avatar requests.
func (h ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", "avatars", h.Users.UpdateAvatar)
}

// UpdateCover handles PUT /api/v1/users/me/cover requests.
func (h ProfileHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", "covers", h.Users.UpdateCoverImage)
}

func (h ProfileHandler) replaceImage(w http.ResponseWriter, r *http.Request, field, prefix string, apply func(ctx context.Context, userID, url string) error) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)

	if err := r.ParseMultipartForm(maxRegisterFormBytes); err != nil {
		logger.Warn("invalid image upload payload", "error", err, "field", field)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, field+" file is required")
		return
	}
	defer file.Close()

	url, err := uploadMedia(ctx, h.Media, prefix, file, header)
	if err != nil {
		logger.Error("image upload failed", "error", err, "field", field, "userId", userID)
		respondError(ctx, w, http.StatusBadGateway, "media upload failed")
		return
	}

	if err := apply(ctx, userID, url); err != nil {
		logger.Error("image update failed", "error", err, "field", field, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update "+field)
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("profile reload failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load updated profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": profileOf(user)})
}

// Channel handles GET /api/v1/users/{username}/profile requests, the public
// channel view with subscription counts.
func (h ProfileHandler) Channel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "profile" {
		respondError(ctx, w, http.StatusNotFound, "profile not found")
		return
	}

	user, err := h.Users.FindByUsername(ctx, parts[0])
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("channel lookup failed", "error", err, "username", parts[0])
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	subscribers, subscribedTo, err := h.Subscriptions.Counts(ctx, user.ID)
	if err != nil {
		logger.Error("channel counts failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	respondJSON(ctx, w, http.StatusOK, channelProfileResponse{
		ID:              user.ID,
		Username:        user.Username,
		FullName:        user.FullName,
		AvatarURL:       user.AvatarURL,
		CoverImageURL:   user.CoverImageURL,
		SubscriberCount: subscribers,
		SubscribedTo:    subscribedTo,
	})
}

type updateProfileRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

type channelProfileResponse struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"fullname"`
	AvatarURL       string `json:"avatarUrl"`
	CoverImageURL   string `json:"coverImageUrl,omitempty"`
	SubscriberCount int64  `json:"subscriberCount"`
	SubscribedTo    int64  `json:"subscribedToCount"`
}

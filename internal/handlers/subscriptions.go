package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// SubscriptionHandler implements subscription toggling and listing endpoints.
type SubscriptionHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
	NowFunc       func() time.Time
}

// Toggle handles POST /api/v1/subscriptions/{channelUsername} requests. A
// first call subscribes the caller to the channel; a second call removes the
// subscription again.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	subscriberID := middleware.UserIDFromContext(ctx)

	channelUsername := strings.TrimPrefix(r.URL.Path, "/api/v1/subscriptions/")
	if channelUsername == "" || strings.Contains(channelUsername, "/") {
		respondError(ctx, w, http.StatusNotFound, "channel not found")
		return
	}

	channel, err := h.Users.FindByUsername(ctx, channelUsername)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logger.Error("channel lookup failed", "error", err, "username", channelUsername)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel")
		return
	}

	if channel.ID == subscriberID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	exists, err := h.Subscriptions.Exists(ctx, subscriberID, channel.ID)
	if err != nil {
		logger.Error("subscription check failed", "error", err, "channelId", channel.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update subscription")
		return
	}

	if exists {
		if err := h.Subscriptions.Delete(ctx, subscriberID, channel.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("unsubscribe failed", "error", err, "channelId", channel.ID)
			respondError(ctx, w, http.StatusInternalServerError, "unable to update subscription")
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]any{"subscribed": false})
		return
	}

	sub := models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channel.ID,
		CreatedAt:    h.now(),
	}
	if err := h.Subscriptions.Create(ctx, sub); err != nil {
		logger.Error("subscribe failed", "error", err, "channelId", channel.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update subscription")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"subscribed": true})
}

// ListSubscriptions handles GET /api/v1/subscriptions requests, returning the
// channels the caller is subscribed to.
func (h SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, "subscriptions", h.Subscriptions.ListChannels)
}

// ListSubscribers handles GET /api/v1/subscribers requests, returning the
// users subscribed to the caller's channel.
func (h SubscriptionHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, "subscribers", h.Subscriptions.ListSubscribers)
}

func (h SubscriptionHandler) listUsers(w http.ResponseWriter, r *http.Request, key string, fetch func(ctx context.Context, userID string) ([]models.User, error)) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	userID := middleware.UserIDFromContext(ctx)

	users, err := fetch(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("subscription listing failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list "+key)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{key: channelSummariesOf(users)})
}

func (h SubscriptionHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

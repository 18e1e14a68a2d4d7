package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const maxVideoFormBytes = 512 << 20

// VideoHandler provides endpoints for publishing and fetching videos.
type VideoHandler struct {
	Videos  VideoStore
	Media   MediaRelay
	NowFunc func() time.Time
}

// List handles GET /api/v1/videos requests.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.ListPublished(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("video listing failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list videos")
		return
	}

	payload := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		payload = append(payload, videoOf(video))
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": payload})
}

// Publish handles POST /api/v1/videos requests: multipart video file plus
// thumbnail plus metadata fields. Both uploads complete before the record is
// written; a relay failure persists nothing.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	ownerID := middleware.UserIDFromContext(ctx)

	if err := r.ParseMultipartForm(maxVideoFormBytes); err != nil {
		logger.Warn("invalid publish payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("duration")), 64)
	if err != nil || duration <= 0 {
		respondError(ctx, w, http.StatusBadRequest, "duration must be a positive number of seconds")
		return
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}
	defer videoFile.Close()

	thumbFile, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
		return
	}
	defer thumbFile.Close()

	videoURL, err := uploadMedia(ctx, h.Media, "videos", videoFile, videoHeader)
	if err != nil {
		logger.Error("video upload failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusBadGateway, "media upload failed")
		return
	}

	thumbnailURL, err := uploadMedia(ctx, h.Media, "thumbnails", thumbFile, thumbHeader)
	if err != nil {
		logger.Error("thumbnail upload failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusBadGateway, "media upload failed")
		return
	}

	now := h.now()
	video := models.Video{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		VideoURL:        videoURL,
		ThumbnailURL:    thumbnailURL,
		Title:           title,
		Description:     description,
		DurationSeconds: duration,
		IsPublished:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("video create failed", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"video": videoOf(video)})
}

// Get handles GET /api/v1/videos/{id} requests and counts the view.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id := videoID(r)
	if id == "" {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	video, err := h.Videos.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}

	if err := h.Videos.IncrementViews(ctx, id); err != nil {
		// The view counter is best-effort; the fetch itself succeeded.
		logger.Warn("view count update failed", "error", err, "videoId", id)
	} else {
		video.ViewCount++
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"video": videoOf(video)})
}

// Update handles PATCH /api/v1/videos/{id} requests. Only the owner may edit.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)

	id := videoID(r)
	if id == "" {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	video, err := h.Videos.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}

	if video.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may edit a video")
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid video update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := video.Title
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	description := video.Description
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description must not be empty")
		return
	}
	isPublished := video.IsPublished
	if req.IsPublished != nil {
		isPublished = *req.IsPublished
	}

	if err := h.Videos.UpdateDetails(ctx, id, title, description, isPublished); err != nil {
		logger.Error("video update failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update video")
		return
	}

	video.Title = title
	video.Description = description
	video.IsPublished = isPublished

	respondJSON(ctx, w, http.StatusOK, map[string]any{"video": videoOf(video)})
}

// Delete handles DELETE /api/v1/videos/{id} requests. Only the owner may delete.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)

	id := videoID(r)
	if id == "" {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	video, err := h.Videos.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("video lookup failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}

	if video.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may delete a video")
		return
	}

	if err := h.Videos.Delete(ctx, id); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("video delete failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func videoID(r *http.Request) string {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/videos/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"isPublished"`
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

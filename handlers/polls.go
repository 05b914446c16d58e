// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

const (
	maxTextLength = 500
	minOptions    = 2
	maxPageSize   = 100
)

type PollHandler struct {
	store store.Gateway
	cfg   cliparse.Config
}

func NewPollHandler(s store.Gateway, cfg cliparse.Config) *PollHandler {
	return &PollHandler{store: s, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	texts, msg := validateCreatePoll(req)
	if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	poll := models.Poll{
		Question:       req.Question,
		VotingSecurity: identity.NormalizeMode(req.VotingSecurity),
		CreatedAt:      time.Now().UTC(),
	}
	if req.DurationMinutes > 0 {
		expiresAt := poll.CreatedAt.Add(time.Duration(req.DurationMinutes) * time.Minute)
		poll.ExpiresAt = &expiresAt
	}

	created, err := h.store.CreatePoll(r.Context(), poll, texts)
	if err != nil {
		slog.Error("failed to create poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created",
		"poll_id", created.ID,
		"options", len(created.Options),
		"voting_security", created.VotingSecurity,
	)

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollWithOptions: *created,
		AdminKey:        auth.GenerateAdminKey(created.ID, h.cfg.AdminKeySalt),
	})
}

// validateCreatePoll returns the option texts, or a message describing
// the first problem found
func validateCreatePoll(req models.CreatePollRequest) ([]string, string) {
	if n := utf8.RuneCountInString(req.Question); n == 0 || strings.TrimSpace(req.Question) == "" {
		return nil, "question is required"
	} else if n > maxTextLength {
		return nil, "question must be at most 500 characters"
	}

	if len(req.Options) < minOptions {
		return nil, "Poll must have at least 2 options"
	}

	seen := make(map[string]struct{}, len(req.Options))
	texts := make([]string, 0, len(req.Options))
	for _, opt := range req.Options {
		n := utf8.RuneCountInString(opt.Text)
		if n == 0 || strings.TrimSpace(opt.Text) == "" {
			return nil, "option text is required"
		}
		if n > maxTextLength {
			return nil, "option text must be at most 500 characters"
		}
		if _, dup := seen[opt.Text]; dup {
			return nil, "Duplicate option texts are not allowed"
		}
		seen[opt.Text] = struct{}{}
		texts = append(texts, opt.Text)
	}

	if req.DurationMinutes < 0 {
		return nil, "duration_minutes must not be negative"
	}

	return texts, ""
}

// ListPolls handles GET /polls?skip=&limit=
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil || skip < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", maxPageSize)
	if err != nil || limit < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	polls, err := h.store.ListPolls(r.Context(), skip, limit)
	if err != nil {
		slog.Error("failed to list polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch polls")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, polls)
}

// GetPoll handles GET /polls/{id}
// Returns the poll with its options in creation order and current counts
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(w, r, "id")
	if !ok {
		return
	}

	poll, err := h.store.GetPoll(r.Context(), pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	options, err := h.store.ListOptions(r.Context(), pollID)
	if err != nil {
		slog.Error("failed to query options", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if options == nil {
		options = []models.Option{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollWithOptions{Poll: *poll, Options: options})
}

// DeletePoll handles DELETE /polls/{id}
// Requires the admin key returned at creation
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(w, r, "id")
	if !ok {
		return
	}

	_, err := h.store.GetPoll(r.Context(), pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.ValidateAdminKey(pollID, auth.AdminKeyFromRequest(r), h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	err = h.store.DeletePoll(r.Context(), pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete poll")
		return
	}

	slog.Info("poll deleted", "poll_id", pollID)
	w.WriteHeader(http.StatusNoContent)
}

// pollIDFromPath reads a poll ID path value and rejects anything that is
// not a UUID
func pollIDFromPath(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	pollID := r.PathValue(name)
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return "", false
	}
	if _, err := uuid.Parse(pollID); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id must be a UUID")
		return "", false
	}
	return pollID, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

const (
	SessionIDHeader = "X-Session-ID"

	defaultUserAgent      = "unknown"
	defaultAcceptLanguage = "en"
)

// VoteLedger records votes and reports results
type VoteLedger interface {
	SubmitVote(ctx context.Context, pollID, optionID, fingerprint string) (*ledger.Receipt, error)
	GetResults(ctx context.Context, pollID string) (*models.PollResults, error)
}

// ResultsPublisher pushes a poll's current results to live subscribers
type ResultsPublisher interface {
	PublishResults(ctx context.Context, pollID string) error
}

type VotingHandler struct {
	store     store.Gateway
	ledger    VoteLedger
	publisher ResultsPublisher
	cfg       cliparse.Config
	now       func() time.Time
}

func NewVotingHandler(s store.Gateway, l VoteLedger, p ResultsPublisher, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{store: s, ledger: l, publisher: p, cfg: cfg, now: time.Now}
}

// SubmitVote handles POST /votes/{poll_id}
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(w, r, "poll_id")
	if !ok {
		return
	}

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	// The poll's security mode decides which signals identify the voter
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
	if poll.ExpiredAt(h.now()) {
		status, msg := voteErrorStatus(ledger.ErrPollExpired)
		middleware.ErrorResponse(w, status, msg)
		return
	}

	signals := signalsFromRequest(r, req)
	fingerprint, err := identity.Resolve(poll.VotingSecurity, signals, pollID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session ID required for this poll")
		return
	}

	slog.Info("vote attempt",
		"poll_id", pollID,
		"ip", signals.IP,
		"voting_security", poll.VotingSecurity,
	)

	receipt, err := h.ledger.SubmitVote(r.Context(), pollID, req.OptionID, fingerprint)
	if err != nil {
		status, msg := voteErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("failed to record vote", "error", err, "poll_id", pollID)
		} else {
			slog.Warn("vote rejected", "reason", msg, "poll_id", pollID)
		}
		middleware.ErrorResponse(w, status, msg)
		return
	}

	// Live delivery is best-effort; the vote is already committed
	if h.publisher != nil {
		if err := h.publisher.PublishResults(context.WithoutCancel(r.Context()), pollID); err != nil {
			slog.Warn("failed to broadcast results", "error", err, "poll_id", pollID)
		}
	}

	slog.Info("vote accepted", "poll_id", pollID, "option_id", receipt.Vote.OptionID)

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		Success:  true,
		Message:  "Vote submitted successfully",
		PollID:   pollID,
		OptionID: req.OptionID,
	})
}

// voteErrorStatus maps a ledger rejection to an HTTP status and message
func voteErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrPollNotFound):
		return http.StatusNotFound, "Poll not found"
	case errors.Is(err, ledger.ErrOptionNotFound):
		return http.StatusNotFound, "Option not found or does not belong to this poll"
	case errors.Is(err, ledger.ErrPollExpired):
		return http.StatusGone, "This poll has expired and is no longer accepting votes"
	case errors.Is(err, ledger.ErrDuplicateVote):
		return http.StatusConflict, "You have already voted in this poll"
	}
	return http.StatusInternalServerError, "Failed to record vote"
}

// signalsFromRequest gathers identity signals. A body session token wins
// over the header. device_session_id plays no part in identity.
func signalsFromRequest(r *http.Request, req models.SubmitVoteRequest) identity.Signals {
	s := identity.Signals{
		IP:             middleware.GetClientIP(r),
		UserAgent:      r.Header.Get("User-Agent"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		SessionID:      strings.TrimSpace(req.SessionID),
	}
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
	if s.AcceptLanguage == "" {
		s.AcceptLanguage = defaultAcceptLanguage
	}
	if s.SessionID == "" {
		s.SessionID = strings.TrimSpace(r.Header.Get(SessionIDHeader))
	}
	return s
}

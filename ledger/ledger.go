// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found or does not belong to this poll")
	ErrPollExpired    = errors.New("this poll has expired and is no longer accepting votes")
	ErrDuplicateVote  = errors.New("you have already voted in this poll")
	ErrStorageFailure = errors.New("storage failure")
)

const (
	DefaultCacheSize = 100_000
	DefaultCacheTTL  = 24 * time.Hour
)

// Store is the subset of the storage gateway the ledger depends on
type Store interface {
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	GetOption(ctx context.Context, id string) (*models.Option, error)
	ListOptions(ctx context.Context, pollID string) ([]models.Option, error)
	InsertVoteAndIncrement(ctx context.Context, pollID, optionID, voterHash string) (*models.Vote, error)
}

type Config struct {
	CacheSize  int
	CacheTTL   time.Duration
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Now        func() time.Time
}

// Receipt describes an accepted vote and the counts right after it
type Receipt struct {
	Vote    *models.Vote
	Results *models.PollResults
}

// Ledger validates and records at most one vote per (poll, fingerprint)
type Ledger struct {
	store   Store
	cache   *NegativeCache
	locks   *keylock.Map
	logger  *slog.Logger
	metrics *ledgerMetrics
	now     func() time.Time
}

func New(s Store, cfg Config) *Ledger {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cache := NewNegativeCache(cfg.CacheSize, cfg.CacheTTL)
	cache.now = cfg.Now

	return &Ledger{
		store:   s,
		cache:   cache,
		locks:   keylock.New(),
		logger:  cfg.Logger,
		metrics: newLedgerMetrics(cfg.Registerer),
		now:     cfg.Now,
	}
}

// SubmitVote records a vote for optionID on behalf of fingerprint.
// Rejections come back as ErrPollNotFound, ErrPollExpired,
// ErrOptionNotFound or ErrDuplicateVote. Anything else wraps
// ErrStorageFailure.
func (l *Ledger) SubmitVote(ctx context.Context, pollID, optionID, fingerprint string) (*Receipt, error) {
	poll, err := l.store.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		l.metrics.vote(outcomePollNotFound)
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, l.storageFailure(err, "failed to load poll", pollID)
	}

	if poll.ExpiredAt(l.now()) {
		l.metrics.vote(outcomeExpired)
		return nil, ErrPollExpired
	}

	option, err := l.store.GetOption(ctx, optionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && option.PollID != pollID) {
		l.metrics.vote(outcomeOptionMissing)
		return nil, ErrOptionNotFound
	}
	if err != nil {
		return nil, l.storageFailure(err, "failed to load option", pollID)
	}

	if l.cache.Contains(pollID, fingerprint) {
		l.metrics.cacheHit()
		l.metrics.vote(outcomeDuplicate)
		return nil, ErrDuplicateVote
	}

	vote, err := l.record(ctx, poll, optionID, fingerprint)
	if err != nil {
		return nil, err
	}
	l.metrics.vote(outcomeAccepted)

	receipt := &Receipt{Vote: vote}
	results, err := l.GetResults(ctx, pollID)
	if err != nil {
		// The vote is committed; only the follow-up read failed.
		l.logger.Warn("failed to read results after vote", "poll_id", pollID, "error", err)
	} else {
		receipt.Results = results
	}

	return receipt, nil
}

// record runs the authoritative insert while holding the lock for this
// (poll, fingerprint) pair
func (l *Ledger) record(ctx context.Context, poll *models.Poll, optionID, fingerprint string) (*models.Vote, error) {
	unlock := l.locks.Lock(cacheKey(poll.ID, fingerprint))
	defer unlock()

	// A request queued behind the winner sees its cache entry here.
	// Each submission is counted as exactly one hit or one miss.
	if l.cache.Contains(poll.ID, fingerprint) {
		l.metrics.cacheHit()
		l.metrics.vote(outcomeDuplicate)
		return nil, ErrDuplicateVote
	}
	l.metrics.cacheMiss()

	vote, err := l.store.InsertVoteAndIncrement(ctx, poll.ID, optionID, fingerprint)
	switch {
	case errors.Is(err, store.ErrConstraintViolation):
		l.cache.Add(poll.ID, fingerprint, l.now(), poll.ExpiresAt)
		l.metrics.vote(outcomeDuplicate)
		return nil, ErrDuplicateVote
	case errors.Is(err, store.ErrNotFound):
		l.metrics.vote(outcomeOptionMissing)
		return nil, ErrOptionNotFound
	case err != nil:
		return nil, l.storageFailure(err, "failed to record vote", poll.ID)
	}

	l.cache.Add(poll.ID, fingerprint, vote.CreatedAt, poll.ExpiresAt)
	return vote, nil
}

// GetResults returns the current counts for a poll. TotalVotes is the sum
// of the option counters read in the same pass.
func (l *Ledger) GetResults(ctx context.Context, pollID string) (*models.PollResults, error) {
	poll, err := l.store.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	options, err := l.store.ListOptions(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	return buildResults(poll, options), nil
}

func buildResults(poll *models.Poll, options []models.Option) *models.PollResults {
	results := &models.PollResults{
		PollID:   poll.ID,
		Question: poll.Question,
		Options:  make([]models.OptionResult, 0, len(options)),
	}
	for _, opt := range options {
		results.TotalVotes += opt.VoteCount
		results.Options = append(results.Options, models.OptionResult{
			ID:        opt.ID,
			Text:      opt.Text,
			VoteCount: opt.VoteCount,
		})
	}
	return results
}

func (l *Ledger) storageFailure(err error, msg, pollID string) error {
	l.logger.Error(msg, "poll_id", pollID, "error", err)
	l.metrics.vote(outcomeStorageError)
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

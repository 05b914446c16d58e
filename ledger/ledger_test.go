// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// memStore is an in-memory Store with the same uniqueness rule as the
// database schema
type memStore struct {
	mu      sync.Mutex
	polls   map[string]*models.Poll
	options map[string]*models.Option
	order   map[string][]string
	votes   map[string]*models.Vote // poll + voter hash
	inserts atomic.Int32
	failGet error
	// insertDelay widens the window in which concurrent submissions queue
	insertDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		polls:   make(map[string]*models.Poll),
		options: make(map[string]*models.Option),
		order:   make(map[string][]string),
		votes:   make(map[string]*models.Vote),
	}
}

func (m *memStore) addPoll(security string, expiresAt *time.Time, texts ...string) (string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pollID := uuid.NewString()
	m.polls[pollID] = &models.Poll{
		ID:             pollID,
		Question:       "Question " + pollID,
		VotingSecurity: security,
		CreatedAt:      time.Now(),
		ExpiresAt:      expiresAt,
	}
	var ids []string
	for i, text := range texts {
		id := uuid.NewString()
		m.options[id] = &models.Option{ID: id, PollID: pollID, Text: text, Position: i}
		ids = append(ids, id)
	}
	m.order[pollID] = ids
	return pollID, ids
}

func (m *memStore) GetPoll(_ context.Context, id string) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	p, ok := m.polls[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetOption(_ context.Context, id string) (*models.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.options[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) ListOptions(_ context.Context, pollID string) ([]models.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Option
	for _, id := range m.order[pollID] {
		out = append(out, *m.options[id])
	}
	return out, nil
}

func (m *memStore) InsertVoteAndIncrement(_ context.Context, pollID, optionID, voterHash string) (*models.Vote, error) {
	m.inserts.Add(1)
	time.Sleep(m.insertDelay)
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pollID + "|" + voterHash
	if _, exists := m.votes[key]; exists {
		return nil, store.ErrConstraintViolation
	}
	opt, ok := m.options[optionID]
	if !ok || opt.PollID != pollID {
		return nil, store.ErrNotFound
	}
	v := &models.Vote{ID: uuid.NewString(), PollID: pollID, OptionID: optionID, VoterHash: voterHash, CreatedAt: time.Now()}
	m.votes[key] = v
	opt.VoteCount++
	return v, nil
}

func (m *memStore) voteRows(optionID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.votes {
		if v.OptionID == optionID {
			n++
		}
	}
	return n
}

func counts(r *models.PollResults) map[string]int64 {
	out := make(map[string]int64)
	for _, o := range r.Options {
		out[o.Text] = o.VoteCount
	}
	return out
}

func TestSubmitVoteScenarioIPAddress(t *testing.T) {
	s := newMemStore()
	l := New(s, Config{})
	ctx := context.Background()
	pollID, opts := s.addPoll(models.SecurityIPAddress, nil, "A", "B")

	fp1, err := identity.Resolve(models.SecurityIPAddress, identity.Signals{IP: "10.0.0.1"}, pollID)
	require.NoError(t, err)
	fp2, err := identity.Resolve(models.SecurityIPAddress, identity.Signals{IP: "10.0.0.2"}, pollID)
	require.NoError(t, err)

	receipt, err := l.SubmitVote(ctx, pollID, opts[0], fp1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 1, "B": 0}, counts(receipt.Results))

	_, err = l.SubmitVote(ctx, pollID, opts[1], fp1)
	assert.ErrorIs(t, err, ErrDuplicateVote)
	results, err := l.GetResults(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 1, "B": 0}, counts(results))

	receipt, err = l.SubmitVote(ctx, pollID, opts[1], fp2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 1, "B": 1}, counts(receipt.Results))
	assert.Equal(t, int64(2), receipt.Results.TotalVotes)
}

func TestSubmitVotePreconditionOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newMemStore()
	l := New(s, Config{Now: func() time.Time { return now }})
	ctx := context.Background()

	expired := now
	expiredPoll, expiredOpts := s.addPoll(models.SecurityIPAddress, &expired, "A", "B")
	livePoll, liveOpts := s.addPoll(models.SecurityIPAddress, nil, "A", "B")
	_, otherOpts := s.addPoll(models.SecurityIPAddress, nil, "X")

	tests := []struct {
		name     string
		pollID   string
		optionID string
		expected error
	}{
		{name: "missing poll", pollID: "nope", optionID: liveOpts[0], expected: ErrPollNotFound},
		{name: "expired before bad option", pollID: expiredPoll, optionID: "nope", expected: ErrPollExpired},
		{name: "expired at exact deadline", pollID: expiredPoll, optionID: expiredOpts[0], expected: ErrPollExpired},
		{name: "missing option", pollID: livePoll, optionID: "nope", expected: ErrOptionNotFound},
		{name: "option from another poll", pollID: livePoll, optionID: otherOpts[0], expected: ErrOptionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.SubmitVote(ctx, tt.pollID, tt.optionID, "fp")
			assert.ErrorIs(t, err, tt.expected)
		})
	}
	assert.Equal(t, int32(0), s.inserts.Load())
}

func TestSubmitVoteExpiredWithZeroVotes(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := deadline.Add(-time.Second)
	s := newMemStore()
	l := New(s, Config{Now: func() time.Time { return now }})
	pollID, opts := s.addPoll(models.SecurityIPAddress, &deadline, "A", "B")

	now = deadline.Add(time.Millisecond)
	_, err := l.SubmitVote(context.Background(), pollID, opts[0], "fp")
	assert.ErrorIs(t, err, ErrPollExpired)
}

func TestDuplicateShortCircuitsOnCache(t *testing.T) {
	s := newMemStore()
	l := New(s, Config{})
	ctx := context.Background()
	pollID, opts := s.addPoll(models.SecurityIPAddress, nil, "A", "B")

	_, err := l.SubmitVote(ctx, pollID, opts[0], "fp")
	require.NoError(t, err)
	require.Equal(t, int32(1), s.inserts.Load())

	_, err = l.SubmitVote(ctx, pollID, opts[1], "fp")
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.Equal(t, int32(1), s.inserts.Load(), "cache hit must not reach the store")
}

func TestDuplicateDetectedWithColdCache(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()
	pollID, opts := s.addPoll(models.SecurityIPAddress, nil, "A", "B")

	// A vote recorded before this process started
	_, err := s.InsertVoteAndIncrement(ctx, pollID, opts[0], "fp")
	require.NoError(t, err)

	l := New(s, Config{})
	_, err = l.SubmitVote(ctx, pollID, opts[1], "fp")
	assert.ErrorIs(t, err, ErrDuplicateVote)

	results, err := l.GetResults(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 1, "B": 0}, counts(results))

	// The constraint hit primes the cache
	assert.True(t, l.cache.Contains(pollID, "fp"))
}

func TestConcurrentSameFingerprint(t *testing.T) {
	s := newMemStore()
	l := New(s, Config{})
	ctx := context.Background()
	pollID, opts := s.addPoll(models.SecurityIPAddress, nil, "A", "B")

	const attempts = 50
	var accepted, duplicates atomic.Int32
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.SubmitVote(ctx, pollID, opts[i%2], "same")
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrDuplicateVote):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(attempts-1), duplicates.Load())

	results, err := l.GetResults(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results.TotalVotes)
	assert.Equal(t, results.Options[0].VoteCount, s.voteRows(opts[0]))
	assert.Equal(t, results.Options[1].VoteCount, s.voteRows(opts[1]))
	assert.Equal(t, 0, l.locks.Len())
}

func TestConcurrentDistinctFingerprints(t *testing.T) {
	s := newMemStore()
	l := New(s, Config{})
	ctx := context.Background()
	pollID, opts := s.addPoll(models.SecurityIPAddress, nil, "A", "B")

	const voters = 100
	var wg sync.WaitGroup
	for i := range voters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.SubmitVote(ctx, pollID, opts[0], fmt.Sprintf("fp-%d", i)); err != nil {
				t.Errorf("vote %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	results, err := l.GetResults(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, int64(voters), results.Options[0].VoteCount)
	assert.Equal(t, int64(voters), results.TotalVotes)
}

func TestTotalVotesIsSumOfCounters(t *testing.T) {
	s := newMemStore()
	l := New(s, Config{})
	ctx := context.Background()
	pollID, opts := s.addPoll(models.SecurityNone, nil, "A", "B", "C")

	for i := range 30 {
		receipt, err := l.SubmitVote(ctx, pollID, opts[i%3], uuid.NewString())
		require.NoError(t, err)

		var sum int64
		for _, o := range receipt.Results.Options {
			sum += o.VoteCount
		}
		require.Equal(t, sum, receipt.Results.TotalVotes)
		require.Equal(t, int64(i+1), receipt.Results.TotalVotes)
	}
}

func TestStorageFailureIsPropagated(t *testing.T) {
	s := newMemStore()
	s.failGet = errors.New("connection refused")
	l := New(s, Config{})

	_, err := l.SubmitVote(context.Background(), "p", "o", "fp")
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrPollNotFound)

	_, err = l.GetResults(context.Background(), "p")
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestVoteMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := newMemStore()
	l := New(s, Config{Registerer: registry})
	ctx := context.Background()
	pollID, opts := s.addPoll(models.SecurityIPAddress, nil, "A")

	_, err := l.SubmitVote(ctx, pollID, opts[0], "fp")
	require.NoError(t, err)
	_, err = l.SubmitVote(ctx, pollID, opts[0], "fp")
	require.ErrorIs(t, err, ErrDuplicateVote)

	assert.Equal(t, 1.0, testutil.ToFloat64(l.metrics.votes.WithLabelValues(outcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.metrics.votes.WithLabelValues(outcomeDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.metrics.cacheMisses))
}

func TestCacheMetricsCountEachSubmissionOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := newMemStore()
	s.insertDelay = 20 * time.Millisecond
	l := New(s, Config{Registerer: registry})
	pollID, opts := s.addPoll(models.SecurityIPAddress, nil, "A")

	const n = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _ = l.SubmitVote(context.Background(), pollID, opts[0], "same-voter")
		}()
	}
	close(start)
	wg.Wait()

	hits := testutil.ToFloat64(l.metrics.cacheHits)
	misses := testutil.ToFloat64(l.metrics.cacheMisses)
	assert.Equal(t, 1.0, misses, "only the accepted submission misses")
	assert.Equal(t, float64(n-1), hits)
	assert.Equal(t, float64(n), hits+misses)
}

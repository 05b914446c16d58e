// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/testutil"
)

func TestLedgerAgainstDatabase(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	l := ledger.New(store.NewSQLStore(conn), ledger.Config{CacheSize: 1000, CacheTTL: time.Hour})
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, conn, models.SecurityBrowserSession, nil)
	optA := testutil.AddTestOption(t, conn, pollID, "A")
	optB := testutil.AddTestOption(t, conn, pollID, "B")

	fp, err := identity.Resolve(models.SecurityBrowserSession, identity.Signals{SessionID: "sess-1"}, pollID)
	require.NoError(t, err)

	receipt, err := l.SubmitVote(ctx, pollID, optB, fp)
	require.NoError(t, err)
	require.NotNil(t, receipt.Results)
	assert.Equal(t, int64(1), receipt.Results.TotalVotes)
	assert.Equal(t, optB, receipt.Vote.OptionID)

	_, err = l.SubmitVote(ctx, pollID, optA, fp)
	assert.ErrorIs(t, err, ledger.ErrDuplicateVote)

	assert.Equal(t, int64(0), testutil.VoteCount(t, conn, optA))
	assert.Equal(t, int64(1), testutil.VoteCount(t, conn, optB))
	assert.Equal(t, int64(1), testutil.VoteRows(t, conn, optB))
}

func TestLedgerExpiredPollAgainstDatabase(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()

	expires := time.Now().Add(-time.Minute)
	pollID := testutil.CreateTestPoll(t, conn, models.SecurityIPAddress, &expires)
	opt := testutil.AddTestOption(t, conn, pollID, "A")

	l := ledger.New(store.NewSQLStore(conn), ledger.Config{})
	_, err := l.SubmitVote(ctx, pollID, opt, "fp")
	assert.ErrorIs(t, err, ledger.ErrPollExpired)
	assert.Equal(t, int64(0), testutil.VoteRows(t, conn, opt))
}

func TestLedgerConcurrentAgainstDatabase(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	l := ledger.New(store.NewSQLStore(conn), ledger.Config{})
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, conn, models.SecurityIPAddress, nil)
	opt := testutil.AddTestOption(t, conn, pollID, "A")

	var accepted, duplicates atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.SubmitVote(ctx, pollID, opt, "shared")
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ledger.ErrDuplicateVote):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(19), duplicates.Load())
	assert.Equal(t, int64(1), testutil.VoteCount(t, conn, opt))
}

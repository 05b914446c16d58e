// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/hub"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/testutil"
)

// testEnv wires the handlers the same way the router does, on a fresh
// test database
type testEnv struct {
	db          *sql.DB
	cfg         cliparse.Config
	store       *store.SQLStore
	ledger      *ledger.Ledger
	hub         *hub.Hub
	broadcaster *hub.Broadcaster

	polls   *PollHandler
	voting  *VotingHandler
	results *ResultsHandler
	live    *LiveHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	s := store.NewSQLStore(db)
	l := ledger.New(s, ledger.Config{CacheSize: cfg.DedupCacheSize, CacheTTL: cfg.DedupCacheTTL})
	h := hub.New(hub.Config{SendTimeout: cfg.BroadcastSendTimeout})
	b := hub.NewBroadcaster(h, l)
	t.Cleanup(h.Stop)

	return &testEnv{
		db:          db,
		cfg:         cfg,
		store:       s,
		ledger:      l,
		hub:         h,
		broadcaster: b,
		polls:       NewPollHandler(s, cfg),
		voting:      NewVotingHandler(s, l, b, cfg),
		results:     NewResultsHandler(l, cfg),
		live:        NewLiveHandler(h, cfg),
	}
}

// vote posts a vote for optionID from a client with the given headers
func (e *testEnv) vote(pollID, optionID string, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/votes/"+pollID, models.SubmitVoteRequest{OptionID: optionID}, headers)
	req.SetPathValue("poll_id", pollID)
	w := httptest.NewRecorder()
	e.voting.SubmitVote(w, req)
	return w
}

func (e *testEnv) getResults(t *testing.T, pollID string) models.PollResults {
	t.Helper()
	req := httptest.NewRequest("GET", "/votes/"+pollID+"/results", nil)
	req.SetPathValue("poll_id", pollID)
	w := httptest.NewRecorder()
	e.results.GetResults(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var results models.PollResults
	testutil.AssertJSON(t, w, &results)
	return results
}

func countsByText(results models.PollResults) map[string]int64 {
	out := make(map[string]int64, len(results.Options))
	for _, o := range results.Options {
		out[o.Text] = o.VoteCount
	}
	return out
}

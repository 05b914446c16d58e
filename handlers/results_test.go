// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

func TestGetResults(t *testing.T) {
	env := newTestEnv(t)
	pollID := testutil.CreateTestPoll(t, env.db, models.SecurityIPAddress, nil)
	optA := testutil.AddTestOption(t, env.db, pollID, "A")
	optB := testutil.AddTestOption(t, env.db, pollID, "B")
	testutil.AddTestOption(t, env.db, pollID, "C")

	for i, opt := range []string{optA, optA, optB} {
		w := env.vote(pollID, opt, map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i+1)})
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	results := env.getResults(t, pollID)
	if results.PollID != pollID || results.Question != "Test Poll?" {
		t.Errorf("Unexpected results header: %+v", results)
	}
	if results.TotalVotes != 3 {
		t.Errorf("Expected 3 total votes, got %d", results.TotalVotes)
	}
	if len(results.Options) != 3 {
		t.Fatalf("Expected 3 options, got %d", len(results.Options))
	}
	for i, expected := range []struct {
		text  string
		count int64
	}{{"A", 2}, {"B", 1}, {"C", 0}} {
		if results.Options[i].Text != expected.text || results.Options[i].VoteCount != expected.count {
			t.Errorf("Option %d: expected %s=%d, got %s=%d", i,
				expected.text, expected.count, results.Options[i].Text, results.Options[i].VoteCount)
		}
	}
}

func TestGetResultsExpiredPoll(t *testing.T) {
	env := newTestEnv(t)
	past := time.Now().Add(-time.Hour)
	pollID := testutil.CreateTestPoll(t, env.db, models.SecurityNone, &past)
	testutil.AddTestOption(t, env.db, pollID, "A")

	results := env.getResults(t, pollID)
	if results.TotalVotes != 0 || len(results.Options) != 1 {
		t.Errorf("Expected readable empty results, got %+v", results)
	}
}

func TestGetResultsErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name           string
		handler        *ResultsHandler
		pollID         string
		expectedStatus int
	}{
		{"unknown poll", env.results, uuid.NewString(), http.StatusNotFound},
		{"malformed id", env.results, "abc", http.StatusBadRequest},
		{"storage failure", NewResultsHandler(failingLedger{}, env.cfg), uuid.NewString(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/votes/"+tt.pollID+"/results", nil)
			req.SetPathValue("poll_id", tt.pollID)
			w := httptest.NewRecorder()

			tt.handler.GetResults(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
)

// TestDBURLEnv points tests at a PostgreSQL database instead of SQLite
const TestDBURLEnv = "TEST_DATABASE_URL"

// SetupTestDB creates a fresh test database with the full schema.
// Without TEST_DATABASE_URL it uses a SQLite file in a temp dir.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	var (
		conn *sql.DB
		err  error
	)
	if url := os.Getenv(TestDBURLEnv); url != "" {
		conn, err = db.Open(db.TypePostgres, url)
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
		// Clean up tables before each test
		_, err = conn.Exec(`
			DROP TABLE IF EXISTS vote CASCADE;
			DROP TABLE IF EXISTS option CASCADE;
			DROP TABLE IF EXISTS poll CASCADE;
		`)
		if err != nil {
			t.Fatalf("Failed to clean database: %v", err)
		}
	} else {
		path := filepath.Join(t.TempDir(), "livepoll_test.db")
		conn, err = db.Open(db.TypeSQLite, "file:"+path)
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
	}

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                 8000,
		DatabaseURL:          "file::memory:",
		DatabaseType:         db.TypeSQLite,
		AdminKeySalt:         "test-admin-salt",
		DedupCacheSize:       1000,
		DedupCacheTTL:        time.Hour,
		BroadcastSendTimeout: time.Second,
		VoteRatePerMinute:    0,
	}
}

// CreateTestPoll inserts a poll with the given security mode and optional
// expiry and returns its ID
func CreateTestPoll(t *testing.T, conn *sql.DB, security string, expiresAt *time.Time) string {
	t.Helper()

	if expiresAt != nil {
		exp := expiresAt.UTC()
		expiresAt = &exp
	}

	pollID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO poll (id, question, voting_security, created_at, expires_at)
		VALUES ($1, 'Test Poll?', $2, $3, $4)
	`, pollID, security, time.Now().UTC(), expiresAt)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID
}

// AddTestOption adds an option to a poll and returns the option ID
func AddTestOption(t *testing.T, conn *sql.DB, pollID, text string) string {
	t.Helper()

	var position int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM option WHERE poll_id = $1`, pollID).Scan(&position); err != nil {
		t.Fatalf("Failed to count options: %v", err)
	}

	optionID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO option (id, poll_id, text, sort_order, vote_count)
		VALUES ($1, $2, $3, $4, 0)
	`, optionID, pollID, text, position)
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// VoteCount returns the stored counter of an option
func VoteCount(t *testing.T, conn *sql.DB, optionID string) int64 {
	t.Helper()

	var count int64
	if err := conn.QueryRow(`SELECT vote_count FROM option WHERE id = $1`, optionID).Scan(&count); err != nil {
		t.Fatalf("Failed to query vote count: %v", err)
	}
	return count
}

// VoteRows returns the number of vote records referencing an option
func VoteRows(t *testing.T, conn *sql.DB, optionID string) int64 {
	t.Helper()

	var count int64
	if err := conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE option_id = $1`, optionID).Scan(&count); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return count
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

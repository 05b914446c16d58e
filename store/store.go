// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/livepoll/models"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("unique constraint violation")
)

// Gateway is the persistence boundary for polls, options, and votes
type Gateway interface {
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	GetOption(ctx context.Context, id string) (*models.Option, error)
	ListOptions(ctx context.Context, pollID string) ([]models.Option, error)
	InsertVoteAndIncrement(ctx context.Context, pollID, optionID, voterHash string) (*models.Vote, error)

	CreatePoll(ctx context.Context, poll models.Poll, optionTexts []string) (*models.PollWithOptions, error)
	ListPolls(ctx context.Context, skip, limit int) ([]models.PollSummary, error)
	DeletePoll(ctx context.Context, id string) error
}

// SQLStore implements Gateway on PostgreSQL or SQLite
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// GetPoll returns the poll or ErrNotFound
func (s *SQLStore) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question, voting_security, created_at, expires_at
		FROM poll
		WHERE id = $1
	`, id).Scan(&poll.ID, &poll.Question, &poll.VotingSecurity, &poll.CreatedAt, &poll.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}

	return &poll, nil
}

// GetOption returns the option or ErrNotFound
func (s *SQLStore) GetOption(ctx context.Context, id string) (*models.Option, error) {
	var opt models.Option
	err := s.db.QueryRowContext(ctx, `
		SELECT id, poll_id, text, sort_order, vote_count
		FROM option
		WHERE id = $1
	`, id).Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.VoteCount)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query option: %w", err)
	}

	return &opt, nil
}

// ListOptions returns a poll's options in display order
func (s *SQLStore) ListOptions(ctx context.Context, pollID string) ([]models.Option, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, text, sort_order, vote_count
		FROM option
		WHERE poll_id = $1
		ORDER BY sort_order, id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	options := []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	return options, nil
}

// InsertVoteAndIncrement records a vote and bumps the option counter in
// one transaction. A second vote with the same (poll, voter hash) returns
// ErrConstraintViolation and leaves the counter untouched.
func (s *SQLStore) InsertVoteAndIncrement(ctx context.Context, pollID, optionID, voterHash string) (*models.Vote, error) {
	vote := models.Vote{
		ID:        uuid.NewString(),
		PollID:    pollID,
		OptionID:  optionID,
		VoterHash: voterHash,
		CreatedAt: s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, poll_id, option_id, voter_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.ID, vote.PollID, vote.OptionID, vote.VoterHash, vote.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrConstraintViolation
		}
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE option
		SET vote_count = vote_count + 1
		WHERE id = $1 AND poll_id = $2
	`, optionID, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment vote count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to increment vote count: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrConstraintViolation
		}
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}

	return &vote, nil
}

// CreatePoll inserts a poll and its options in order
func (s *SQLStore) CreatePoll(ctx context.Context, poll models.Poll, optionTexts []string) (*models.PollWithOptions, error) {
	if poll.ID == "" {
		poll.ID = uuid.NewString()
	}
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = s.now()
	}
	poll.CreatedAt = poll.CreatedAt.UTC()
	if poll.ExpiresAt != nil {
		exp := poll.ExpiresAt.UTC()
		poll.ExpiresAt = &exp
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, question, voting_security, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, poll.ID, poll.Question, poll.VotingSecurity, poll.CreatedAt, poll.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert poll: %w", err)
	}

	options := make([]models.Option, 0, len(optionTexts))
	for i, text := range optionTexts {
		opt := models.Option{
			ID:       uuid.NewString(),
			PollID:   poll.ID,
			Text:     text,
			Position: i,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO option (id, poll_id, text, sort_order, vote_count)
			VALUES ($1, $2, $3, $4, 0)
		`, opt.ID, opt.PollID, opt.Text, opt.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to insert option: %w", err)
		}
		options = append(options, opt)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit poll: %w", err)
	}

	return &models.PollWithOptions{Poll: poll, Options: options}, nil
}

// ListPolls returns poll summaries, newest first. Totals are summed from
// the option counters at read time.
func (s *SQLStore) ListPolls(ctx context.Context, skip, limit int) ([]models.PollSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.question, p.voting_security, p.created_at, p.expires_at,
		       (SELECT COUNT(*) FROM option o WHERE o.poll_id = p.id),
		       (SELECT COALESCE(SUM(o.vote_count), 0) FROM option o WHERE o.poll_id = p.id)
		FROM poll p
		ORDER BY p.created_at DESC, p.id
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	polls := []models.PollSummary{}
	for rows.Next() {
		var p models.PollSummary
		if err := rows.Scan(&p.ID, &p.Question, &p.VotingSecurity, &p.CreatedAt, &p.ExpiresAt,
			&p.OptionCount, &p.TotalVotes); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read polls: %w", err)
	}

	return polls, nil
}

// DeletePoll removes a poll with its options and votes
func (s *SQLStore) DeletePoll(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The schema cascades, but spelling it out keeps the behaviour the
	// same when a SQLite connection was opened without foreign_keys.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vote WHERE poll_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete votes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM option WHERE poll_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM poll WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique or primary key
// violation from either supported driver
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// Extended result codes are off on this connection
			return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
		}
	}

	return false
}

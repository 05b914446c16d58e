// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"context"
	"fmt"

	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/models"
)

// ResultsSource reads the current results of a poll
type ResultsSource interface {
	GetResults(ctx context.Context, pollID string) (*models.PollResults, error)
}

// Broadcaster publishes result snapshots for a poll to the poll's room and
// to AllRoom. Reading and publishing happen under a per-poll lock, so the
// last publish for a poll never carries an older snapshot than an earlier
// one.
type Broadcaster struct {
	hub    *Hub
	source ResultsSource
	locks  *keylock.Map
}

func NewBroadcaster(h *Hub, source ResultsSource) *Broadcaster {
	return &Broadcaster{hub: h, source: source, locks: keylock.New()}
}

// PublishResults reads the poll's results and publishes them as a
// vote_update message
func (b *Broadcaster) PublishResults(ctx context.Context, pollID string) error {
	unlock := b.locks.Lock(pollID)
	defer unlock()

	results, err := b.source.GetResults(ctx, pollID)
	if err != nil {
		return fmt.Errorf("read results for poll %s: %w", pollID, err)
	}

	msg := Message{
		Topic: pollID,
		Payload: models.VoteUpdateMessage{
			Type: models.MessageVoteUpdate,
			Data: *results,
		},
	}
	b.hub.Publish(ctx, pollID, msg)
	b.hub.Publish(ctx, AllRoom, msg)
	return nil
}

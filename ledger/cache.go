// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"hash/fnv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const cacheShards = 16

type cacheEntry struct {
	votedAt  time.Time
	deadline time.Time
}

// NegativeCache remembers (poll, fingerprint) pairs that already voted.
// It is split into independently locked LRU shards, each bounded and
// TTL-evicting. A miss proves nothing; the database constraint decides.
type NegativeCache struct {
	shards  [cacheShards]*expirable.LRU[string, cacheEntry]
	horizon time.Duration
	now     func() time.Time
}

func NewNegativeCache(size int, horizon time.Duration) *NegativeCache {
	perShard := size / cacheShards
	if perShard < 1 {
		perShard = 1
	}
	c := &NegativeCache{horizon: horizon, now: time.Now}
	for i := range c.shards {
		c.shards[i] = expirable.NewLRU[string, cacheEntry](perShard, nil, horizon)
	}
	return c
}

func cacheKey(pollID, fingerprint string) string {
	return pollID + "\x00" + fingerprint
}

func (c *NegativeCache) shard(key string) *expirable.LRU[string, cacheEntry] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%cacheShards]
}

// Contains reports whether the pair is known to have voted
func (c *NegativeCache) Contains(pollID, fingerprint string) bool {
	key := cacheKey(pollID, fingerprint)
	s := c.shard(key)
	e, ok := s.Get(key)
	if !ok {
		return false
	}
	if !c.now().Before(e.deadline) {
		s.Remove(key)
		return false
	}
	return true
}

// Add records a vote. The entry lives until the horizon passes or the
// poll expires, whichever comes first.
func (c *NegativeCache) Add(pollID, fingerprint string, votedAt time.Time, pollExpiry *time.Time) {
	deadline := votedAt.Add(c.horizon)
	if pollExpiry != nil && pollExpiry.Before(deadline) {
		deadline = *pollExpiry
	}
	key := cacheKey(pollID, fingerprint)
	c.shard(key).Add(key, cacheEntry{votedAt: votedAt, deadline: deadline})
}

// Len returns the number of entries across all shards, expired or not
func (c *NegativeCache) Len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}

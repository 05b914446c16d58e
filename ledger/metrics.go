// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote outcome labels
const (
	outcomeAccepted      = "accepted"
	outcomeDuplicate     = "duplicate"
	outcomePollNotFound  = "poll_not_found"
	outcomeOptionMissing = "option_not_found"
	outcomeExpired       = "expired"
	outcomeStorageError  = "storage_error"
)

type ledgerMetrics struct {
	votes       *prometheus.CounterVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

func newLedgerMetrics(registry prometheus.Registerer) *ledgerMetrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &ledgerMetrics{
		votes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livepoll_votes_total",
			Help: "Vote submissions by outcome",
		}, []string{"outcome"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "livepoll_dedup_cache_hits_total",
			Help: "Duplicate votes short-circuited by the in-memory cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "livepoll_dedup_cache_misses_total",
			Help: "Vote submissions that reached the database constraint",
		}),
	}
}

func (m *ledgerMetrics) vote(outcome string) {
	if m != nil {
		m.votes.WithLabelValues(outcome).Inc()
	}
}

func (m *ledgerMetrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *ledgerMetrics) cacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

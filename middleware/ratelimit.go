// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	rateLimitClients = 10_000
	rateLimitIdle    = 10 * time.Minute
)

// RateLimiter allows each peer address a fixed number of requests per
// minute. Limiters for idle peers are evicted.
type RateLimiter struct {
	perMinute int
	mu        sync.Mutex
	clients   *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter returns nil when perMinute is not positive, which
// disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		perMinute: perMinute,
		clients:   expirable.NewLRU[string, *rate.Limiter](rateLimitClients, nil, rateLimitIdle),
	}
}

func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.clients.Get(client); ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute)
	rl.clients.Add(client, l)
	return l
}

// Allow reports whether client may make another request now
func (rl *RateLimiter) Allow(client string) bool {
	if rl == nil {
		return true
	}
	return rl.limiter(client).Allow()
}

// Limit wraps next, answering 429 once the peer's budget is spent.
// Forwarding headers are ignored so they cannot reset the budget.
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	if rl == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(PeerIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int((time.Minute / time.Duration(rl.perMinute)).Seconds())+1))
			ErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded, try again later")
			return
		}
		next(w, r)
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/hub"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// Deps are the long-lived services the routes share
type Deps struct {
	Store  store.Gateway
	Ledger *ledger.Ledger
	Hub    *hub.Hub
	// Gatherer backs /metrics; nil means the default registry
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	broadcaster := hub.NewBroadcaster(deps.Hub, deps.Ledger)
	pollHandler := handlers.NewPollHandler(deps.Store, cfg)
	votingHandler := handlers.NewVotingHandler(deps.Store, deps.Ledger, broadcaster, cfg)
	resultsHandler := handlers.NewResultsHandler(deps.Ledger, cfg)
	liveHandler := handlers.NewLiveHandler(deps.Hub, cfg)
	limiter := middleware.NewRateLimiter(cfg.VoteRatePerMinute)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.JSONResponse(w, http.StatusOK, models.HealthResponse{Status: "healthy"})
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Poll management
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("DELETE /polls/{id}", middleware.WithLogging(pollHandler.DeletePoll))

	// Voting (public)
	mux.HandleFunc("POST /votes/{poll_id}", middleware.WithLogging(limiter.Limit(votingHandler.SubmitVote)))
	mux.HandleFunc("GET /votes/{poll_id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Live updates
	mux.HandleFunc("GET /ws/polls/{room}", middleware.WithLogging(liveHandler.Subscribe))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("livepoll API v1"))
	})

	return mux
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the LivePoll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{
		Store:    store,
		Ledger:   ledger,
		Hub:      hub,
		Gatherer: registry,
	}, cfg)

# Endpoints

Health and metrics:

	GET /health  - {"status":"healthy"}
	GET /metrics - Prometheus exposition

Polls:

	POST   /polls      - Create poll (returns admin_key)
	GET    /polls      - List polls, newest first
	GET    /polls/{id} - Poll with options and counts
	DELETE /polls/{id} - Delete poll (requires admin key)

Voting (public):

	POST /votes/{poll_id}         - Submit vote (rate limited per IP)
	GET  /votes/{poll_id}/results - Current results

Live updates:

	GET /ws/polls/{room} - WebSocket; room is a poll ID or "all"

# Handler Initialization

The router builds the broadcaster from the hub and ledger, so every
accepted vote reaches the live subscribers of its poll and of "all".
*/
package router

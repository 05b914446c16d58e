// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the LivePoll API server.

LivePoll is a real-time polling service. Anyone can create a poll, voters
get one vote each according to the poll's voting security mode, and
results stream to WebSocket subscribers as votes arrive.

# Starting the Server

The server requires a database URL and an admin key salt. SQLite is the
default database type:

	DATABASE_URL=file:livepoll.db ADMIN_KEY_SALT=... go run .

Or with PostgreSQL:

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... ADMIN_KEY_SALT=... go run .

Or with flags:

	go run . -p 8000 -t sqlite -d "file:livepoll.db"

A .env file in the working directory is loaded first.

# Configuration

  - PORT (-p): Server port (default: 8000)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - DATABASE_URL (-d): Connection string (required)
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC (required)
  - DEDUP_CACHE_SIZE (-cache-size): Duplicate-vote cache entries
  - DEDUP_CACHE_TTL (-cache-ttl): Duplicate-vote cache horizon
  - BROADCAST_SEND_TIMEOUT (-send-timeout): Per-subscriber send limit
  - VOTE_RATE_PER_MINUTE (-vote-rate): Votes per connecting address, 0 disables
  - WS_ALLOWED_ORIGINS (-ws-origins): Allowed WebSocket origin patterns

# Architecture

  - handlers: HTTP request handlers (polls, voting, results, live)
  - router: Route definitions using Go 1.22+ routing
  - ledger: One-vote-per-voter recording and results
  - hub: Room-based live broadcast over WebSockets
  - identity: Voter fingerprints per security mode
  - store: Database gateway
  - keylock: Per-key mutual exclusion
  - middleware: CORS, logging, rate limiting, JSON helpers
  - models: Request/response types
  - auth: Admin key generation and validation
  - db: Connection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main

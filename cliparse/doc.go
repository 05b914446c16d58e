// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadEnv reads a .env file (if present), then ParseFlags returns a Config
struct with all settings:

	if err := cliparse.LoadEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 8000)
  - DatabaseURL: SQLite file or PostgreSQL connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - DedupCacheSize: Duplicate vote cache capacity (default: 100000)
  - DedupCacheTTL: Duplicate vote cache horizon (default: 24h)
  - BroadcastSendTimeout: Per-subscriber live update timeout (default: 5s)
  - VoteRatePerMinute: Votes per minute per connecting address, 0 disables (default: 5)
  - WSOrigins: Extra origin patterns allowed to open live connections

# CLI Flags

	-p             Server port
	-d             Database URL
	-t             Database type
	-admin-salt    Admin key salt
	-cache-size    Duplicate vote cache capacity
	-cache-ttl     Duplicate vote cache horizon
	-send-timeout  Live update send timeout
	-vote-rate     Votes per minute per connecting address
	-ws-origins    Comma separated origin patterns

# Environment Variables

Flags fall back to environment variables:

	PORT                   → -p
	DATABASE_URL           → -d
	DATABASE_TYPE          → -t
	ADMIN_KEY_SALT         → -admin-salt
	DEDUP_CACHE_SIZE       → -cache-size
	DEDUP_CACHE_TTL        → -cache-ttl
	BROADCAST_SEND_TIMEOUT → -send-timeout
	VOTE_RATE_PER_MINUTE   → -vote-rate
	WS_ALLOWED_ORIGINS     → -ws-origins

CLI flags take precedence over environment variables, which take
precedence over .env entries.

# Validation

ParseFlags returns an error if required values are missing or malformed:

  - DATABASE_URL must be provided
  - ADMIN_KEY_SALT must be provided
  - DATABASE_TYPE must be sqlite or postgres
  - sizes and durations must be positive, the vote rate non-negative
*/
package cliparse

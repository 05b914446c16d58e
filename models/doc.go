// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options, voting_security, duration_minutes
  - SubmitVoteRequest: option_id, session_id (device_session_id is
    accepted from older clients and ignored)

# Response Types

Types for JSON responses:

  - CreatePollResponse: poll with options, admin_key
  - VoteResponse: success, message, poll_id, option_id
  - HealthResponse: status
  - ErrorResponse: error, message

# Domain Types

  - Poll: question, voting security mode, creation and optional expiry time
  - Option: display text and vote counter, ordered by position
  - Vote: one row per (poll, voter hash)
  - PollSummary: list entry with option count and live total
  - PollResults: live result snapshot (total_votes is the sum of counters)

# Live Updates

Messages pushed to websocket subscribers:

	{"type": "vote_update", "data": {poll_id, question, total_votes, options}}
	{"type": "ping", "message": "connected", "room": "<poll id or all>"}

# Constants

Voting security modes:

	SecurityNone              = "none"
	SecurityIPAddress         = "ip_address"
	SecurityBrowserSession    = "browser_session"
	SecurityDeviceFingerprint = "device_fingerprint"

Any other value, including the legacy "persistent_cookie", is stored as
device_fingerprint.

The reserved room that receives every poll's updates:

	AllRoom = "all"
*/
package models

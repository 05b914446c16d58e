// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the LivePoll API.

# Handler Types

Each handler is a struct holding its dependencies and the config:

  - PollHandler: Poll lifecycle (create, list, get, delete)
  - VotingHandler: Vote submission and live publication
  - ResultsHandler: Current results
  - LiveHandler: WebSocket subscriptions

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(store, cfg)
	votingHandler := handlers.NewVotingHandler(store, ledger, broadcaster, cfg)

# Polls

	POST   /polls       → CreatePoll (returns admin_key)
	GET    /polls       → ListPolls (?skip=&limit=, newest first)
	GET    /polls/{id}  → GetPoll
	DELETE /polls/{id}  → DeletePoll (X-Admin-Key or Bearer token)

A poll has 2 or more distinct options and an optional lifetime in
minutes. Unknown voting_security values are stored as device_fingerprint.

# Voting

	POST /votes/{poll_id}         → SubmitVote
	GET  /votes/{poll_id}/results → GetResults

The poll's voting_security decides who counts as the same voter:

  - ip_address: client IP
  - browser_session: session_id (body) or X-Session-ID
  - device_fingerprint: client IP and Accept-Language
  - none: every request is a new voter

Any other value is treated as device_fingerprint. device_session_id is
accepted in the body and ignored.

A second vote by the same voter gets 409, a vote on an expired poll 410.
Accepted votes are pushed to live subscribers after they commit.

# Live Updates

	GET /ws/polls/{room} → Subscribe

The room is a poll ID or "all". Clients receive vote_update messages
and get a ping reply to every text frame they send.
*/
package handlers

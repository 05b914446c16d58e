// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package hub distributes live poll updates to connected clients.

A Hub keeps a registry of rooms (a poll id, or "all") and their
subscribers. Publish snapshots a room, sends to each subscriber with a
per-send timeout, and drops subscribers whose send fails without
interrupting delivery to the rest.

ConnSubscriber adapts a websocket connection. Its Send never blocks; it
keeps only the newest pending update per poll so a slow reader catches up
on the latest counts instead of replaying every intermediate one.

Broadcaster turns "a vote was accepted" into a vote_update message for
the poll's room and the "all" room.
*/
package hub

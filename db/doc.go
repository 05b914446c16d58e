// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections and schema creation.

# Connecting

Open selects the driver by database type:

	conn, err := db.Open(db.TypeSQLite, "file:livepoll.db")
	conn, err := db.Open(db.TypePostgres, "postgres://...")

SQLite connections get foreign_keys and busy_timeout pragmas and a single
pooled connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - poll: question, voting security mode, optional expiry
  - option: display text, sort order, vote counter
  - vote: one row per voter hash per poll

# Relationships

	poll 1──* option
	poll 1──* vote
	option 1──* vote

All foreign keys use ON DELETE CASCADE.

# Constraints

vote has UNIQUE (poll_id, voter_hash). This constraint is the authority
for duplicate detection; the in-memory cache in the ledger is only a hint.
*/
package db

// Package store provides SQLite-backed durable storage for invite attribution.
//
// Two tables:
//   - invite_baseline: last observed use counter per (community_id, code)
//   - invite_join_log: append-only record of every join and its attribution
//
// # Critical Patterns
//
// Baseline upserts are idempotent and split by column:
//   - uses, updated_at: last write wins
//   - creator_id, created_at: first write wins (COALESCE of stored, incoming)
//
// The only way to replace a stored creator is ClaimCreator, used when an
// internal workflow knows the human behind a bot-created invite.
//
// Join log rows are inserted once and never updated. A join without an
// attribution is still a row, with NULL attribution columns.
//
// Queries order deterministically (ORDER BY code / id) so test output and
// operator listings are stable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Timestamps are stored as RFC 3339 text in UTC.
package store

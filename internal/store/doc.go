// Package store provides SQLite-backed local persistence for the client.
//
// One database file holds:
//   - Basket lines: the draft basket, kept across restarts
//   - Orders and order lines: stored orders for the pickup slot
//   - Journal: every applied action with its logical seq
//
// # Critical Patterns
//
// Logical Identity and Time
//   - Journal ordering uses seq INTEGER (logical clock), never timestamps
//   - Replaying the journal through the reducer rebuilds the snapshot
//
// Deterministic Query Results
//   - Every list query has a total ORDER BY
//
// Exact Decimals
//   - Prices and quantities are stored as decimal TEXT, never REAL
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

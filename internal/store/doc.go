// Package store provides SQLite-backed durable client storage for basket.
//
// Three tables, each with a single writer:
//   - kv: opaque blobs by key (the persisted cart lives under cart.v1)
//   - sync_state: per-session reconciliation state, keyed by session digest
//   - submissions: the checkout submission ledger
//
// # Ordering
//
// The ledger is ordered by a logical seq column, never by wall time, so
// listings are stable across runs:
//
//	ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

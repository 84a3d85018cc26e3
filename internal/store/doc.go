// Package store provides SQLite-backed durable storage for the Till POS
// backend: the catalog tables (categories, items) and the transaction
// tables (transactions, transaction_lines).
//
// # Invariants enforced at this layer
//
//   - Lines cascade-delete with their transaction (ON DELETE CASCADE).
//   - Items and categories cannot be deleted while referenced (RESTRICT),
//     so snapshotted line history always joins back to a live item row.
//   - Money columns are TEXT decimal strings; they are parsed with
//     shopspring/decimal and never coerced through floating point.
//   - Timestamps are fixed-width RFC3339 UTC strings, so SQL range
//     predicates on closed_at compare chronologically.
//
// # Atomicity
//
// Engine state transitions run through Store.Mutate, which scopes the
// read-check-write of one operation to a single database transaction.
// Any error rolls back the whole operation; partial line additions or
// half-applied closes cannot be observed. Multi-statement reads (a
// transaction with its lines, the report selections) run through
// Store.View, which scopes them to one read transaction so they observe
// a single committed snapshot.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

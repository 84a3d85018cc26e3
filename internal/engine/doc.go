// Package engine implements the Till transaction engine.
//
// The engine is the only writer of transaction state. It enforces the
// three-state lifecycle (Open → Closed | Cancelled, both terminal), the
// line mutation rules, and the close-time financial computation.
//
// CONCURRENCY:
//
// Each operation is self-contained: acquire the per-transaction lock,
// read-check-write inside one database transaction, release. Operations
// on different transaction ids run fully in parallel; there is no global
// lock. Reports and list reads bypass the locks entirely - the store
// scopes them to one read transaction, so they observe a consistent
// snapshot without blocking writers.
//
// PRICE SNAPSHOTTING:
//
// AddLine copies the item's catalog price into the line's unit_price.
// That snapshot is immutable for the rest of the line's life. Catalog
// edits therefore never rewrite open tabs or closed history, which is
// what makes report totals reproducible.
//
// ERRORS:
//
// Rule violations surface as pos.Error values with a code (NOT_FOUND,
// INVALID_STATE, INVALID_INPUT, INSUFFICIENT_PAYMENT). Store failures
// propagate as opaque wrapped errors. No operation retries: a silently
// retried close could charge a customer twice.
package engine

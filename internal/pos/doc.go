// Package pos defines the domain types shared across the Till backend:
// catalog records, transactions and their lines, sales reports, and the
// error taxonomy surfaced to API callers.
//
// Money is represented with shopspring/decimal throughout. Amounts are
// never computed, stored, or rendered through floating point; report
// totals are exact sums of the persisted decimal values. (The one float
// conversion in the system feeds the Prometheus revenue counter, whose
// client API is float64.)
//
// The transaction lifecycle is a three-state machine:
//
//	Open ──close──▶ Closed   (payment validated, change computed)
//	Open ──cancel─▶ Cancelled (no financial computation)
//
// Closed and Cancelled are terminal. Payment details exist only on Closed
// transactions and are carried in a separate Payment struct rather than as
// nullable fields, so callers cannot read a paid amount that was never set.
package pos

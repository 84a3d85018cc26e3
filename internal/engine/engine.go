package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/store"
)

// Engine enforces the transaction lifecycle: line mutations are legal only
// while a transaction is Open, Open→Closed validates payment and computes
// change exactly once, and Closed/Cancelled are terminal.
//
// Every mutating operation acquires the per-transaction lock and then runs
// its read-check-write inside one database transaction, so two concurrent
// closes of the same tab can never both succeed and a remove racing a close
// can never leave a stale total. Errors are surfaced to the caller with
// their code intact; nothing here retries - retrying a half-failed close
// would be a double charge.
type Engine struct {
	store *store.Store
	clock Clock
	locks *lockTable
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock, for deterministic timestamps in tests.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine backed by the given store.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		clock: SystemClock{},
		locks: newLockTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateTransaction opens a new empty tab. customerName may be empty for
// walk-in customers.
func (e *Engine) CreateTransaction(ctx context.Context, customerName string) (*pos.Transaction, error) {
	now := e.clock.Now().UTC()
	txn := pos.Transaction{
		ID:           uuid.New(),
		CustomerName: customerName,
		Status:       pos.StatusOpen,
		Total:        decimal.Zero,
		Lines:        []pos.Line{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := e.store.Mutate(ctx, func(tx *store.Tx) error {
		return tx.InsertTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// AddLine appends an item to an Open transaction, snapshotting the item's
// current catalog price as the line's unit price. Adding the same item
// twice produces two independent lines; lines are never merged, so each
// keeps the price in effect when it was added.
//
// Returns the new line and the recomputed transaction total.
func (e *Engine) AddLine(ctx context.Context, transactionID, itemID uuid.UUID, quantity int64) (*pos.Line, decimal.Decimal, error) {
	if quantity < 1 {
		return nil, decimal.Zero, pos.InvalidInputf("quantity must be at least 1, got %d", quantity)
	}

	unlock := e.locks.Lock(transactionID)
	defer unlock()

	var (
		line  pos.Line
		total decimal.Decimal
	)
	err := e.store.Mutate(ctx, func(tx *store.Tx) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != pos.StatusOpen {
			return pos.InvalidStatef("transaction %s is %s, not open", transactionID, txn.Status)
		}

		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.InStock {
			return pos.InvalidInputf("item %q is out of stock", item.Name)
		}

		now := e.clock.Now().UTC()
		line = pos.Line{
			ID:            uuid.New(),
			TransactionID: transactionID,
			ItemID:        itemID,
			ItemName:      item.Name,
			Quantity:      quantity,
			UnitPrice:     item.Price,
			TotalPrice:    item.Price.Mul(decimal.NewFromInt(quantity)),
			CreatedAt:     now,
		}
		if err := tx.InsertLine(ctx, line); err != nil {
			return err
		}

		total, err = e.recomputeTotal(ctx, tx, transactionID, now)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return &line, total, nil
}

// UpdateLineQuantity changes the quantity of an existing line on an Open
// transaction. The line keeps its snapshotted unit price; only quantity
// and total price change.
func (e *Engine) UpdateLineQuantity(ctx context.Context, transactionID, lineID uuid.UUID, quantity int64) (*pos.Line, decimal.Decimal, error) {
	if quantity < 1 {
		return nil, decimal.Zero, pos.InvalidInputf("quantity must be at least 1, got %d", quantity)
	}

	unlock := e.locks.Lock(transactionID)
	defer unlock()

	var (
		line  pos.Line
		total decimal.Decimal
	)
	err := e.store.Mutate(ctx, func(tx *store.Tx) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != pos.StatusOpen {
			return pos.InvalidStatef("transaction %s is %s, not open", transactionID, txn.Status)
		}

		existing, err := tx.GetLine(ctx, transactionID, lineID)
		if err != nil {
			return err
		}

		line = *existing
		line.Quantity = quantity
		line.TotalPrice = line.UnitPrice.Mul(decimal.NewFromInt(quantity))
		if err := tx.UpdateLineQuantity(ctx, lineID, quantity, line.TotalPrice); err != nil {
			return err
		}

		total, err = e.recomputeTotal(ctx, tx, transactionID, e.clock.Now().UTC())
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return &line, total, nil
}

// RemoveLine deletes a line from an Open transaction and returns the
// transaction with its recomputed total.
func (e *Engine) RemoveLine(ctx context.Context, transactionID, lineID uuid.UUID) (*pos.Transaction, error) {
	unlock := e.locks.Lock(transactionID)
	defer unlock()

	var result *pos.Transaction
	err := e.store.Mutate(ctx, func(tx *store.Tx) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != pos.StatusOpen {
			return pos.InvalidStatef("transaction %s is %s, not open", transactionID, txn.Status)
		}

		// Existence check before delete so a missing line is NOT_FOUND,
		// not a silent no-op.
		if _, err := tx.GetLine(ctx, transactionID, lineID); err != nil {
			return err
		}
		if err := tx.DeleteLine(ctx, lineID); err != nil {
			return err
		}

		now := e.clock.Now().UTC()
		total, err := e.recomputeTotal(ctx, tx, transactionID, now)
		if err != nil {
			return err
		}

		txn.Total = total
		txn.UpdatedAt = now
		lines, err := tx.ListLines(ctx, transactionID)
		if err != nil {
			return err
		}
		txn.Lines = lines
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CloseTransaction finalizes an Open transaction: validates that the paid
// amount covers the total, computes change, stamps closed_at, and flips
// status to Closed in one atomic write. A transaction with no lines may be
// closed; its change equals the full paid amount.
//
// Once a close succeeds, every further close attempt fails with
// INVALID_STATE - there is no path to a second success.
func (e *Engine) CloseTransaction(ctx context.Context, transactionID uuid.UUID, paid decimal.Decimal) (*pos.Transaction, error) {
	unlock := e.locks.Lock(transactionID)
	defer unlock()

	var result *pos.Transaction
	err := e.store.Mutate(ctx, func(tx *store.Tx) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != pos.StatusOpen {
			return pos.InvalidStatef("transaction %s is %s, not open", transactionID, txn.Status)
		}
		if paid.Cmp(txn.Total) < 0 {
			return pos.InsufficientPaymentf("paid %s is less than total %s", paid, txn.Total)
		}

		change := paid.Sub(txn.Total)
		now := e.clock.Now().UTC()
		if err := tx.SetClosed(ctx, transactionID, paid, change, now); err != nil {
			return err
		}

		lines, err := tx.ListLines(ctx, transactionID)
		if err != nil {
			return err
		}

		txn.Status = pos.StatusClosed
		txn.Payment = &pos.Payment{Paid: paid, Change: change}
		txn.UpdatedAt = now
		txn.ClosedAt = &now
		txn.Lines = lines
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelTransaction abandons an Open transaction. No payment is recorded;
// closed_at records the termination time. Cancelled tabs never appear in
// reports.
func (e *Engine) CancelTransaction(ctx context.Context, transactionID uuid.UUID) (*pos.Transaction, error) {
	unlock := e.locks.Lock(transactionID)
	defer unlock()

	var result *pos.Transaction
	err := e.store.Mutate(ctx, func(tx *store.Tx) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != pos.StatusOpen {
			return pos.InvalidStatef("transaction %s is %s, not open", transactionID, txn.Status)
		}

		now := e.clock.Now().UTC()
		if err := tx.SetCancelled(ctx, transactionID, now); err != nil {
			return err
		}

		txn.Status = pos.StatusCancelled
		txn.UpdatedAt = now
		txn.ClosedAt = &now
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateCustomer renames the customer label on an Open transaction.
func (e *Engine) UpdateCustomer(ctx context.Context, transactionID uuid.UUID, customerName string) (*pos.Transaction, error) {
	unlock := e.locks.Lock(transactionID)
	defer unlock()

	var result *pos.Transaction
	err := e.store.Mutate(ctx, func(tx *store.Tx) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != pos.StatusOpen {
			return pos.InvalidStatef("transaction %s is %s, not open", transactionID, txn.Status)
		}

		now := e.clock.Now().UTC()
		if err := tx.SetCustomer(ctx, transactionID, customerName, now); err != nil {
			return err
		}

		txn.CustomerName = customerName
		txn.UpdatedAt = now
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransaction returns a transaction with its lines.
func (e *Engine) GetTransaction(ctx context.Context, transactionID uuid.UUID) (*pos.Transaction, error) {
	return e.store.GetTransaction(ctx, transactionID)
}

// ListTransactions returns every transaction, newest first.
func (e *Engine) ListTransactions(ctx context.Context) ([]pos.Transaction, error) {
	return e.store.ListTransactions(ctx)
}

// ListOpenTransactions returns all Open transactions, oldest first.
func (e *Engine) ListOpenTransactions(ctx context.Context) ([]pos.Transaction, error) {
	return e.store.ListOpenTransactions(ctx)
}

// recomputeTotal re-derives the transaction total as the exact sum of its
// remaining lines and persists it together with updated_at.
func (e *Engine) recomputeTotal(ctx context.Context, tx *store.Tx, transactionID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	lines, err := tx.ListLines(ctx, transactionID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.TotalPrice)
	}

	if err := tx.SetTotal(ctx, transactionID, total, now); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

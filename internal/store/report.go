package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineSale is one closed transaction line joined with its item and
// category, as selected for report aggregation.
type LineSale struct {
	TransactionID uuid.UUID
	ItemID        uuid.UUID
	ItemName      string
	CategoryName  string
	Quantity      int64
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
}

// ClosedTransactionTotals returns the totals of every Closed transaction
// whose closed_at falls in [start, end], inclusive on both ends. Cancelled
// transactions never match: the predicate is on status = 'closed', not on
// closed_at being set.
//
// Run report selections that must agree with each other inside one
// Store.View, so a concurrent close appears in all of them or in none.
func (t *Tx) ClosedTransactionTotals(ctx context.Context, start, end time.Time) ([]decimal.Decimal, error) {
	return closedTransactionTotals(ctx, t.tx, start, end)
}

// ClosedTransactionTotals is the single-query variant for callers that
// need no cross-statement consistency.
func (s *Store) ClosedTransactionTotals(ctx context.Context, start, end time.Time) ([]decimal.Decimal, error) {
	return closedTransactionTotals(ctx, s.db, start, end)
}

// ClosedLineSales returns every line of every Closed transaction in the
// inclusive [start, end] window, joined with item and category names.
// Summation happens in the reporting engine with exact decimal arithmetic,
// not in SQL, so TEXT-stored amounts never pass through floating point.
func (t *Tx) ClosedLineSales(ctx context.Context, start, end time.Time) ([]LineSale, error) {
	return closedLineSales(ctx, t.tx, start, end)
}

func closedTransactionTotals(ctx context.Context, q querier, start, end time.Time) ([]decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT total
		FROM transactions
		WHERE status = 'closed' AND closed_at >= ? AND closed_at <= ?
		ORDER BY closed_at ASC, id ASC
	`, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query closed totals: %w", err)
	}
	defer rows.Close()

	totals := []decimal.Decimal{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan closed total: %w", err)
		}
		total, err := parseMoney(raw)
		if err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed totals: %w", err)
	}
	return totals, nil
}

func closedLineSales(ctx context.Context, q querier, start, end time.Time) ([]LineSale, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT l.transaction_id, l.item_id, i.name, c.name, l.quantity, l.unit_price, l.total_price
		FROM transaction_lines l
		JOIN items i ON i.id = l.item_id
		JOIN categories c ON c.id = i.category_id
		JOIN transactions t ON t.id = l.transaction_id
		WHERE t.status = 'closed' AND t.closed_at >= ? AND t.closed_at <= ?
		ORDER BY t.closed_at ASC, l.created_at ASC, l.id ASC
	`, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query line sales: %w", err)
	}
	defer rows.Close()

	sales := []LineSale{}
	for rows.Next() {
		var (
			sale                  LineSale
			transactionID, itemID string
			unitPrice, totalPrice string
		)
		if err := rows.Scan(&transactionID, &itemID, &sale.ItemName, &sale.CategoryName, &sale.Quantity, &unitPrice, &totalPrice); err != nil {
			return nil, fmt.Errorf("scan line sale: %w", err)
		}
		if sale.TransactionID, err = uuid.Parse(transactionID); err != nil {
			return nil, fmt.Errorf("parse transaction id %q: %w", transactionID, err)
		}
		if sale.ItemID, err = uuid.Parse(itemID); err != nil {
			return nil, fmt.Errorf("parse item id %q: %w", itemID, err)
		}
		if sale.UnitPrice, err = parseMoney(unitPrice); err != nil {
			return nil, err
		}
		if sale.TotalPrice, err = parseMoney(totalPrice); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line sales: %w", err)
	}
	return sales, nil
}

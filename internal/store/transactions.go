package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/till/internal/pos"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the scan helpers can
// serve the read path and the mutation path with the same SQL.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const transactionColumns = `id, customer_name, status, total, paid_amount, change_amount, created_at, updated_at, closed_at`

// GetTransaction returns the transaction row without its lines, for use
// inside a mutation. Returns a NOT_FOUND domain error if no row exists.
func (t *Tx) GetTransaction(ctx context.Context, id uuid.UUID) (*pos.Transaction, error) {
	return getTransaction(ctx, t.tx, id)
}

// InsertTransaction writes a freshly created transaction row.
func (t *Tx) InsertTransaction(ctx context.Context, txn pos.Transaction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_name, status, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		txn.ID.String(),
		txn.CustomerName,
		string(txn.Status),
		txn.Total.String(),
		formatTime(txn.CreatedAt),
		formatTime(txn.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertLine writes a new transaction line.
func (t *Tx) InsertLine(ctx context.Context, line pos.Line) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO transaction_lines (id, transaction_id, item_id, quantity, unit_price, total_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		line.ID.String(),
		line.TransactionID.String(),
		line.ItemID.String(),
		line.Quantity,
		line.UnitPrice.String(),
		line.TotalPrice.String(),
		formatTime(line.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert line: %w", err)
	}
	return nil
}

// GetLine returns one line of the given transaction. Returns a NOT_FOUND
// domain error if the line does not exist or belongs to another transaction.
func (t *Tx) GetLine(ctx context.Context, transactionID, lineID uuid.UUID) (*pos.Line, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT l.id, l.transaction_id, l.item_id, i.name, l.quantity, l.unit_price, l.total_price, l.created_at
		FROM transaction_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.id = ? AND l.transaction_id = ?
	`, lineID.String(), transactionID.String())

	line, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pos.NotFoundf("line %s not found on transaction %s", lineID, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get line: %w", err)
	}
	return line, nil
}

// UpdateLineQuantity rewrites a line's quantity and total price. The unit
// price column is deliberately untouched: the add-time snapshot survives
// every later edit.
func (t *Tx) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int64, totalPrice decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE transaction_lines SET quantity = ?, total_price = ? WHERE id = ?
	`, quantity, totalPrice.String(), lineID.String())
	if err != nil {
		return fmt.Errorf("update line quantity: %w", err)
	}
	return nil
}

// DeleteLine removes a line.
func (t *Tx) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM transaction_lines WHERE id = ?
	`, lineID.String())
	if err != nil {
		return fmt.Errorf("delete line: %w", err)
	}
	return nil
}

// ListLines returns all lines of a transaction, insertion order first.
func (t *Tx) ListLines(ctx context.Context, transactionID uuid.UUID) ([]pos.Line, error) {
	return listLines(ctx, t.tx, transactionID)
}

// SetTotal rewrites the derived total and bumps updated_at.
func (t *Tx) SetTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal, now time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE transactions SET total = ?, updated_at = ? WHERE id = ?
	`, total.String(), formatTime(now), id.String())
	if err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	return nil
}

// SetCustomer rewrites the customer label and bumps updated_at.
func (t *Tx) SetCustomer(ctx context.Context, id uuid.UUID, name string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE transactions SET customer_name = ?, updated_at = ? WHERE id = ?
	`, name, formatTime(now), id.String())
	if err != nil {
		return fmt.Errorf("set customer: %w", err)
	}
	return nil
}

// SetClosed applies the single atomic Open→Closed transition: status,
// payment, change, and closed_at land in one statement.
func (t *Tx) SetClosed(ctx context.Context, id uuid.UUID, paid, change decimal.Decimal, now time.Time) error {
	ts := formatTime(now)
	_, err := t.tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, paid_amount = ?, change_amount = ?, closed_at = ?, updated_at = ?
		WHERE id = ?
	`, string(pos.StatusClosed), paid.String(), change.String(), ts, ts, id.String())
	if err != nil {
		return fmt.Errorf("close transaction: %w", err)
	}
	return nil
}

// SetCancelled applies the Open→Cancelled transition. Payment columns stay
// NULL; closed_at records when the transaction was terminated.
func (t *Tx) SetCancelled(ctx context.Context, id uuid.UUID, now time.Time) error {
	ts := formatTime(now)
	_, err := t.tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, closed_at = ?, updated_at = ?
		WHERE id = ?
	`, string(pos.StatusCancelled), ts, ts, id.String())
	if err != nil {
		return fmt.Errorf("cancel transaction: %w", err)
	}
	return nil
}

// GetTransaction returns a transaction with its lines populated.
// Returns a NOT_FOUND domain error if no row exists. The row and its
// lines are read in one View, so the returned total always equals the
// sum of the returned lines even while a mutation commits concurrently.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*pos.Transaction, error) {
	var txn *pos.Transaction
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		if txn, err = getTransaction(ctx, tx.tx, id); err != nil {
			return err
		}
		lines, err := listLines(ctx, tx.tx, id)
		if err != nil {
			return err
		}
		txn.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns every transaction, newest first, without lines.
func (s *Store) ListTransactions(ctx context.Context) ([]pos.Transaction, error) {
	return listTransactions(ctx, s.db, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC, id ASC
	`)
}

// ListOpenTransactions returns all Open transactions ordered by created_at
// ascending, id ascending on ties, so the result is stable across calls.
func (s *Store) ListOpenTransactions(ctx context.Context) ([]pos.Transaction, error) {
	return listTransactions(ctx, s.db, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = 'open'
		ORDER BY created_at ASC, id ASC
	`)
}

func getTransaction(ctx context.Context, q querier, id uuid.UUID) (*pos.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ?
	`, id.String())

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pos.NotFoundf("transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return txn, nil
}

func listTransactions(ctx context.Context, q querier, query string) ([]pos.Transaction, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	transactions := []pos.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

func listLines(ctx context.Context, q querier, transactionID uuid.UUID) ([]pos.Line, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT l.id, l.transaction_id, l.item_id, i.name, l.quantity, l.unit_price, l.total_price, l.created_at
		FROM transaction_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.transaction_id = ?
		ORDER BY l.created_at ASC, l.id ASC
	`, transactionID.String())
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	lines := []pos.Line{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*pos.Transaction, error) {
	var (
		id, status, total      string
		customerName           string
		paid, change, closedAt *string
		createdAt, updatedAt   string
	)
	if err := row.Scan(&id, &customerName, &status, &total, &paid, &change, &createdAt, &updatedAt, &closedAt); err != nil {
		return nil, err
	}

	txn := pos.Transaction{
		CustomerName: customerName,
		Status:       pos.Status(status),
	}

	var err error
	if txn.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse transaction id %q: %w", id, err)
	}
	if txn.Total, err = parseMoney(total); err != nil {
		return nil, err
	}
	if txn.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if txn.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if txn.ClosedAt, err = parseNullTime(closedAt); err != nil {
		return nil, err
	}

	paidAmount, err := parseNullMoney(paid)
	if err != nil {
		return nil, err
	}
	changeAmount, err := parseNullMoney(change)
	if err != nil {
		return nil, err
	}
	if paidAmount != nil && changeAmount != nil {
		txn.Payment = &pos.Payment{Paid: *paidAmount, Change: *changeAmount}
	}

	return &txn, nil
}

func scanLine(row rowScanner) (*pos.Line, error) {
	var (
		id, transactionID, itemID, itemName string
		quantity                            int64
		unitPrice, totalPrice, createdAt    string
	)
	if err := row.Scan(&id, &transactionID, &itemID, &itemName, &quantity, &unitPrice, &totalPrice, &createdAt); err != nil {
		return nil, err
	}

	line := pos.Line{ItemName: itemName, Quantity: quantity}

	var err error
	if line.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse line id %q: %w", id, err)
	}
	if line.TransactionID, err = uuid.Parse(transactionID); err != nil {
		return nil, fmt.Errorf("parse transaction id %q: %w", transactionID, err)
	}
	if line.ItemID, err = uuid.Parse(itemID); err != nil {
		return nil, fmt.Errorf("parse item id %q: %w", itemID, err)
	}
	if line.UnitPrice, err = parseMoney(unitPrice); err != nil {
		return nil, err
	}
	if line.TotalPrice, err = parseMoney(totalPrice); err != nil {
		return nil, err
	}
	if line.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &line, nil
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/till/internal/pos"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "till.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func money(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func seedTestItem(t *testing.T, s *Store, name, price string) pos.Item {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	category := pos.Category{ID: uuid.New(), Name: "General", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateCategory(ctx, category))

	item := pos.Item{
		ID:         uuid.New(),
		Name:       name,
		Price:      money(t, price),
		CategoryID: category.ID,
		InStock:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateItem(ctx, item))
	return item
}

func insertTestTransaction(t *testing.T, s *Store, createdAt time.Time) pos.Transaction {
	t.Helper()
	txn := pos.Transaction{
		ID:        uuid.New(),
		Status:    pos.StatusOpen,
		Total:     decimal.Zero,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	err := s.Mutate(context.Background(), func(tx *Tx) error {
		return tx.InsertTransaction(context.Background(), txn)
	})
	require.NoError(t, err)
	return txn
}

func TestTransactionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 10, 30, 0, 123456789, time.UTC)
	txn := insertTestTransaction(t, s, created)

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, pos.StatusOpen, got.Status)
	assert.True(t, got.Total.IsZero())
	assert.Nil(t, got.Payment)
	assert.Nil(t, got.ClosedAt)
	assert.True(t, got.CreatedAt.Equal(created), "created_at survives the round trip with nanoseconds")
	assert.Empty(t, got.Lines)
}

func TestGetTransaction_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTransaction(context.Background(), uuid.New())
	assert.True(t, pos.IsNotFound(err))
}

func TestMutate_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txn := pos.Transaction{
		ID:        uuid.New(),
		Status:    pos.StatusOpen,
		Total:     decimal.Zero,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.Mutate(ctx, func(tx *Tx) error {
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		return pos.InvalidInputf("abort")
	})
	require.Error(t, err)
	assert.True(t, pos.IsInvalidInput(err), "domain error passes through Mutate unchanged")

	_, err = s.GetTransaction(ctx, txn.ID)
	assert.True(t, pos.IsNotFound(err), "rolled-back insert must not be visible")
}

func TestSetClosed_PersistsPayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txn := insertTestTransaction(t, s, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	closedAt := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)

	err := s.Mutate(ctx, func(tx *Tx) error {
		return tx.SetClosed(ctx, txn.ID, money(t, "10.00"), money(t, "2.00"), closedAt)
	})
	require.NoError(t, err)

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusClosed, got.Status)
	require.NotNil(t, got.Payment)
	assert.True(t, got.Payment.Paid.Equal(money(t, "10.00")))
	assert.True(t, got.Payment.Change.Equal(money(t, "2.00")))
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(closedAt))
}

func TestSetCancelled_LeavesPaymentUnset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txn := insertTestTransaction(t, s, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	cancelledAt := time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)

	err := s.Mutate(ctx, func(tx *Tx) error {
		return tx.SetCancelled(ctx, txn.ID, cancelledAt)
	})
	require.NoError(t, err)

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusCancelled, got.Status)
	assert.Nil(t, got.Payment)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(cancelledAt))
}

func TestView_ReadsOneSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	closedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	txn := insertTestTransaction(t, s, closedAt.Add(-time.Minute))
	require.NoError(t, s.Mutate(ctx, func(tx *Tx) error {
		if err := tx.SetTotal(ctx, txn.ID, money(t, "2.50"), closedAt); err != nil {
			return err
		}
		return tx.SetClosed(ctx, txn.ID, money(t, "2.50"), money(t, "0"), closedAt)
	}))

	item := seedTestItem(t, s, "Espresso", "2.50")
	require.NoError(t, s.Mutate(ctx, func(tx *Tx) error {
		return tx.InsertLine(ctx, pos.Line{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			ItemID:        item.ID,
			Quantity:      1,
			UnitPrice:     item.Price,
			TotalPrice:    item.Price,
			CreatedAt:     closedAt.Add(-time.Minute),
		})
	}))

	// Both report selections through the same read transaction.
	err := s.View(ctx, func(tx *Tx) error {
		totals, err := tx.ClosedTransactionTotals(ctx, closedAt.Add(-time.Hour), closedAt.Add(time.Hour))
		if err != nil {
			return err
		}
		require.Len(t, totals, 1)

		sales, err := tx.ClosedLineSales(ctx, closedAt.Add(-time.Hour), closedAt.Add(time.Hour))
		if err != nil {
			return err
		}
		require.Len(t, sales, 1)
		assert.Equal(t, txn.ID, sales[0].TransactionID)
		return nil
	})
	require.NoError(t, err)
}

func TestView_PassesErrorThrough(t *testing.T) {
	s := newTestStore(t)

	err := s.View(context.Background(), func(tx *Tx) error {
		return pos.InvalidInputf("abort")
	})
	assert.True(t, pos.IsInvalidInput(err))
}

func TestListOpenTransactions_OrderedByCreation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	third := insertTestTransaction(t, s, base.Add(2*time.Hour))
	first := insertTestTransaction(t, s, base)
	second := insertTestTransaction(t, s, base.Add(time.Hour))

	// A closed transaction must not appear.
	closed := insertTestTransaction(t, s, base.Add(30*time.Minute))
	err := s.Mutate(ctx, func(tx *Tx) error {
		return tx.SetClosed(ctx, closed.ID, decimal.Zero, decimal.Zero, base.Add(time.Hour))
	})
	require.NoError(t, err)

	open, err := s.ListOpenTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, first.ID, open[0].ID)
	assert.Equal(t, second.ID, open[1].ID)
	assert.Equal(t, third.ID, open[2].ID)
}

func TestLineCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := seedTestItem(t, s, "Flat White", "3.50")
	txn := insertTestTransaction(t, s, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	line := pos.Line{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		ItemID:        item.ID,
		Quantity:      2,
		UnitPrice:     item.Price,
		TotalPrice:    money(t, "7.00"),
		CreatedAt:     txn.CreatedAt,
	}
	err := s.Mutate(ctx, func(tx *Tx) error {
		return tx.InsertLine(ctx, line)
	})
	require.NoError(t, err)

	_, err = s.db.Exec("DELETE FROM transactions WHERE id = ?", txn.ID.String())
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(
		"SELECT COUNT(*) FROM transaction_lines WHERE transaction_id = ?", txn.ID.String(),
	).Scan(&count))
	assert.Zero(t, count, "lines must cascade with their transaction")
}

func TestDeleteItem_RejectedWhileReferenced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := seedTestItem(t, s, "Flat White", "3.50")
	txn := insertTestTransaction(t, s, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	line := pos.Line{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		ItemID:        item.ID,
		Quantity:      1,
		UnitPrice:     item.Price,
		TotalPrice:    item.Price,
		CreatedAt:     txn.CreatedAt,
	}
	err := s.Mutate(ctx, func(tx *Tx) error {
		return tx.InsertLine(ctx, line)
	})
	require.NoError(t, err)

	err = s.DeleteItem(ctx, item.ID)
	assert.True(t, pos.IsInvalidInput(err), "item referenced by a line must not be deletable")

	// The snapshotted history still joins back to the live item row.
	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Flat White", got.Lines[0].ItemName)
}

package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/store"
)

// OpenStore opens a fresh SQLite store in a per-test temp directory and
// closes it when the test finishes.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "till.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedCategory creates a category and returns it.
func SeedCategory(t *testing.T, s *store.Store, name string) pos.Category {
	t.Helper()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	c := pos.Category{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateCategory(context.Background(), c))
	return c
}

// SeedItem creates an in-stock item under the given category. price must
// be a decimal string such as "3.50".
func SeedItem(t *testing.T, s *store.Store, categoryID uuid.UUID, name, price string) pos.Item {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	it := pos.Item{
		ID:         uuid.New(),
		Name:       name,
		Price:      p,
		CategoryID: categoryID,
		InStock:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateItem(context.Background(), it))
	return it
}

// Money parses a decimal string, failing the test on bad input.
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

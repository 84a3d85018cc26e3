package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/till/internal/engine"
	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/store"
	"github.com/tillworks/till/internal/testutil"
)

func setupReporter(t *testing.T) (*Reporter, *engine.Engine, *store.Store, *testutil.FixedClock) {
	t.Helper()
	s := testutil.OpenStore(t)
	clock := testutil.NewFixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	e := engine.New(s, engine.WithClock(clock))
	r := New(s, WithClock(clock))
	return r, e, s, clock
}

// closeSale opens a transaction, adds the given quantity of each item, and
// closes it at the clock's current instant.
func closeSale(t *testing.T, e *engine.Engine, quantities map[pos.Item]int64) *pos.Transaction {
	t.Helper()
	ctx := context.Background()

	txn, err := e.CreateTransaction(ctx, "")
	require.NoError(t, err)
	for item, qty := range quantities {
		_, _, err := e.AddLine(ctx, txn.ID, item.ID, qty)
		require.NoError(t, err)
	}
	closed, err := e.CloseTransaction(ctx, txn.ID, testutil.Money(t, "1000"))
	require.NoError(t, err)
	return closed
}

func TestGenerate_InvalidRange(t *testing.T) {
	r, _, _, clock := setupReporter(t)

	now := clock.Now()
	_, err := r.Generate(context.Background(), now, now.Add(-time.Hour))
	assert.True(t, pos.IsInvalidInput(err))
}

func TestGenerate_EmptyWindow(t *testing.T) {
	r, _, _, clock := setupReporter(t)

	now := clock.Now()
	got, err := r.Generate(context.Background(), now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.True(t, got.Summary.TotalRevenue.IsZero())
	assert.Zero(t, got.Summary.TotalTransactions)
	assert.True(t, got.Summary.AverageTransactionValue.IsZero())
	assert.Empty(t, got.Summary.TopSellingItem)
	assert.Empty(t, got.Summary.TopRevenueItem)
}

func TestGenerate_SumsClosedTransactions(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	flatWhite := testutil.SeedItem(t, s, category.ID, "Flat White", "3.50")
	croissant := testutil.SeedItem(t, s, category.ID, "Croissant", "1.00")
	espresso := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	start := clock.Now()

	// 3.50 x 2 + 1.00 = 8.00
	closeSale(t, e, map[pos.Item]int64{flatWhite: 2, croissant: 1})
	clock.Advance(time.Minute)
	// 2.50 x 2 = 5.00
	closeSale(t, e, map[pos.Item]int64{espresso: 2})

	got, err := r.Generate(ctx, start, clock.Now())
	require.NoError(t, err)

	assert.True(t, got.Summary.TotalRevenue.Equal(testutil.Money(t, "13.00")), "revenue = %s", got.Summary.TotalRevenue)
	assert.EqualValues(t, 2, got.Summary.TotalTransactions)
	assert.EqualValues(t, 5, got.Summary.TotalItemsSold)
	assert.True(t, got.Summary.AverageTransactionValue.Equal(testutil.Money(t, "6.50")))
	assert.Equal(t, "Flat White", got.Summary.TopRevenueItem)

	require.Len(t, got.Items, 3)
	top := got.Items[0]
	assert.Equal(t, flatWhite.ID, top.ItemID)
	assert.Equal(t, "Coffee", top.CategoryName)
	assert.EqualValues(t, 2, top.QuantitySold)
	assert.True(t, top.TotalRevenue.Equal(testutil.Money(t, "7.00")))
	assert.EqualValues(t, 1, top.TransactionCount)
}

func TestGenerate_ExcludesCancelledAndOpen(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	start := clock.Now()

	// A cancelled tab that would have been worth 100.00.
	cancelled, err := e.CreateTransaction(ctx, "")
	require.NoError(t, err)
	_, _, err = e.AddLine(ctx, cancelled.ID, item.ID, 40)
	require.NoError(t, err)
	_, err = e.CancelTransaction(ctx, cancelled.ID)
	require.NoError(t, err)

	// A still-open tab.
	open, err := e.CreateTransaction(ctx, "")
	require.NoError(t, err)
	_, _, err = e.AddLine(ctx, open.ID, item.ID, 4)
	require.NoError(t, err)

	closeSale(t, e, map[pos.Item]int64{item: 1})

	got, err := r.Generate(ctx, start, clock.Now())
	require.NoError(t, err)
	assert.True(t, got.Summary.TotalRevenue.Equal(testutil.Money(t, "2.50")))
	assert.EqualValues(t, 1, got.Summary.TotalTransactions)
	assert.EqualValues(t, 1, got.Summary.TotalItemsSold)
}

func TestGenerate_InclusiveBoundaries(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	start := clock.Now()
	closeSale(t, e, map[pos.Item]int64{item: 1}) // closed exactly at start

	clock.Advance(time.Hour)
	end := clock.Now()
	closeSale(t, e, map[pos.Item]int64{item: 1}) // closed exactly at end

	clock.Advance(time.Nanosecond)
	closeSale(t, e, map[pos.Item]int64{item: 1}) // one tick past the window

	got, err := r.Generate(ctx, start, end)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Summary.TotalTransactions, "window is inclusive on both ends")
	assert.True(t, got.Summary.TotalRevenue.Equal(testutil.Money(t, "5.00")))
}

func TestGenerate_SingleInstantWindow(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	at := clock.Now()
	closeSale(t, e, map[pos.Item]int64{item: 1})

	got, err := r.Generate(ctx, at, at)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Summary.TotalTransactions, "start == end is a valid window")
}

func TestGenerate_AveragePriceOverSnapshots(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	start := clock.Now()
	closeSale(t, e, map[pos.Item]int64{item: 1})

	// The price goes up; the earlier line keeps its snapshot.
	item.Price = testutil.Money(t, "3.00")
	require.NoError(t, s.UpdateItem(ctx, item))
	clock.Advance(time.Minute)
	closeSale(t, e, map[pos.Item]int64{item: 1})

	got, err := r.Generate(ctx, start, clock.Now())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].AveragePrice.Equal(testutil.Money(t, "2.75")), "mean of 2.50 and 3.00")
	assert.True(t, got.Items[0].TotalRevenue.Equal(testutil.Money(t, "5.50")))
	assert.EqualValues(t, 2, got.Items[0].TransactionCount)
}

func TestGenerate_OrderingDeterministic(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	big := testutil.SeedItem(t, s, category.ID, "Big", "9.00")
	tiedA := testutil.SeedItem(t, s, category.ID, "Tied A", "2.00")
	tiedB := testutil.SeedItem(t, s, category.ID, "Tied B", "2.00")

	start := clock.Now()
	closeSale(t, e, map[pos.Item]int64{big: 1, tiedA: 1, tiedB: 1})

	got, err := r.Generate(ctx, start, clock.Now())
	require.NoError(t, err)
	require.Len(t, got.Items, 3)

	assert.Equal(t, big.ID, got.Items[0].ItemID, "revenue descending")

	// The 2.00 items tie on revenue; the smaller item id comes first.
	wantFirst, wantSecond := tiedA.ID, tiedB.ID
	if strings.Compare(wantSecond.String(), wantFirst.String()) < 0 {
		wantFirst, wantSecond = wantSecond, wantFirst
	}
	assert.Equal(t, wantFirst, got.Items[1].ItemID)
	assert.Equal(t, wantSecond, got.Items[2].ItemID)
}

func TestGenerate_TopSellingByQuantity(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	cheap := testutil.SeedItem(t, s, category.ID, "Sparkling Water", "1.80")
	dear := testutil.SeedItem(t, s, category.ID, "Fresh Orange Juice", "4.20")

	start := clock.Now()
	closeSale(t, e, map[pos.Item]int64{cheap: 5, dear: 2})

	got, err := r.Generate(ctx, start, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, "Sparkling Water", got.Summary.TopSellingItem, "most units")
	assert.Equal(t, "Fresh Orange Juice", got.Summary.TopRevenueItem, "most revenue")
}

// A close committing between the report's two selections must not split
// the report: the breakdown and the summary always describe the same set
// of transactions.
func TestGenerate_ConsistentUnderConcurrentCloses(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	start := clock.Now()
	end := start.Add(24 * time.Hour)

	done := make(chan struct{})
	closeErr := make(chan error, 1)
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			txn, err := e.CreateTransaction(ctx, "")
			if err == nil {
				_, _, err = e.AddLine(ctx, txn.ID, item.ID, 1)
			}
			if err == nil {
				_, err = e.CloseTransaction(ctx, txn.ID, testutil.Money(t, "2.50"))
			}
			if err != nil {
				closeErr <- err
				return
			}
			clock.Advance(time.Second)
		}
	}()

	for i := 0; i < 50; i++ {
		got, err := r.Generate(ctx, start, end)
		require.NoError(t, err)

		breakdown := decimal.Zero
		var quantity int64
		for _, it := range got.Items {
			breakdown = breakdown.Add(it.TotalRevenue)
			quantity += it.QuantitySold
		}
		assert.True(t, breakdown.Equal(got.Summary.TotalRevenue),
			"breakdown revenue %s != summary revenue %s (transactions=%d)",
			breakdown, got.Summary.TotalRevenue, got.Summary.TotalTransactions)
		assert.Equal(t, quantity, got.Summary.TotalItemsSold)
		assert.Equal(t, breakdown.IsZero(), got.Summary.TotalTransactions == 0)
	}

	<-done
	select {
	case err := <-closeErr:
		t.Fatalf("concurrent close failed: %v", err)
	default:
	}
}

func TestDaily_TrailingDay(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	closeSale(t, e, map[pos.Item]int64{item: 1}) // inside: closes "now"

	clock.Advance(25 * time.Hour)
	closeSale(t, e, map[pos.Item]int64{item: 1}) // the new "now"

	got, err := r.Daily(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Summary.TotalTransactions, "the first sale fell out of the trailing 24h")
}

func TestMonthly_TrailingThirtyDays(t *testing.T) {
	r, e, s, clock := setupReporter(t)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	closeSale(t, e, map[pos.Item]int64{item: 1})
	clock.Advance(29 * 24 * time.Hour)
	closeSale(t, e, map[pos.Item]int64{item: 2})

	got, err := r.Monthly(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Summary.TotalTransactions)
	assert.True(t, got.Summary.TotalRevenue.Equal(testutil.Money(t, "7.50")))

	clock.Advance(2 * 24 * time.Hour)
	got, err = r.Monthly(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Summary.TotalTransactions, "the first sale aged out")
}

package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/store"
)

// Clock supplies the "now" used by the Daily and Monthly convenience
// windows. Satisfied by engine.SystemClock and testutil.FixedClock.
type Clock interface {
	Now() time.Time
}

// Reporter aggregates Closed transactions into sales reports. It is
// strictly read-only: nothing here mutates the store, and no result is
// cached - every call reflects the latest committed closes.
type Reporter struct {
	store *store.Store
	clock Clock
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock overrides the wall clock, for deterministic windows in tests.
func WithClock(c Clock) Option {
	return func(r *Reporter) {
		r.clock = c
	}
}

// New creates a Reporter backed by the given store.
func New(s *store.Store, opts ...Option) *Reporter {
	r := &Reporter{store: s, clock: systemClock{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Generate aggregates the Closed transactions whose closed_at falls in
// [start, end], inclusive on both ends. start == end is a valid
// single-instant window; start after end is INVALID_INPUT.
//
// Cancelled transactions contribute nothing - no revenue, no line
// quantities - regardless of what lines they held before cancellation.
func (r *Reporter) Generate(ctx context.Context, start, end time.Time) (*pos.SalesReport, error) {
	if start.After(end) {
		return nil, pos.InvalidInputf("start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	// Both selections run inside one read transaction: a close committing
	// mid-report lands in the totals and the breakdown together or not at
	// all, never in just one of them.
	var (
		totals []decimal.Decimal
		sales  []store.LineSale
	)
	err := r.store.View(ctx, func(tx *store.Tx) error {
		var err error
		if totals, err = tx.ClosedTransactionTotals(ctx, start, end); err != nil {
			return err
		}
		sales, err = tx.ClosedLineSales(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}

	items := aggregateItems(sales)

	revenue := decimal.Zero
	for _, total := range totals {
		revenue = revenue.Add(total)
	}

	var itemsSold int64
	for _, it := range items {
		itemsSold += it.QuantitySold
	}

	count := int64(len(totals))
	average := decimal.Zero
	if count > 0 {
		average = revenue.Div(decimal.NewFromInt(count)).Round(2)
	}

	summary := pos.ReportSummary{
		TotalRevenue:            revenue,
		TotalItemsSold:          itemsSold,
		TotalTransactions:       count,
		AverageTransactionValue: average,
		TopSellingItem:          topSellingItem(items),
		TopRevenueItem:          topRevenueItem(items),
	}

	return &pos.SalesReport{
		StartDate: start.UTC(),
		EndDate:   end.UTC(),
		Items:     items,
		Summary:   summary,
	}, nil
}

// Daily reports the trailing 24 hours ending now.
func (r *Reporter) Daily(ctx context.Context) (*pos.SalesReport, error) {
	end := r.clock.Now().UTC()
	return r.Generate(ctx, end.Add(-24*time.Hour), end)
}

// Monthly reports the trailing 30 days ending now.
func (r *Reporter) Monthly(ctx context.Context) (*pos.SalesReport, error) {
	end := r.clock.Now().UTC()
	return r.Generate(ctx, end.Add(-30*24*time.Hour), end)
}

// itemAccumulator collects per-item running sums during aggregation.
type itemAccumulator struct {
	sales        pos.ItemSales
	unitPriceSum decimal.Decimal
	lineCount    int64
	transactions map[uuid.UUID]struct{}
}

// aggregateItems folds the selected lines into one ItemSales per distinct
// item_id. Output ordering is total revenue descending, ties broken by
// item_id ascending, so report output is byte-for-byte reproducible.
func aggregateItems(sales []store.LineSale) []pos.ItemSales {
	byItem := make(map[uuid.UUID]*itemAccumulator)
	for _, sale := range sales {
		acc, ok := byItem[sale.ItemID]
		if !ok {
			acc = &itemAccumulator{
				sales: pos.ItemSales{
					ItemID:       sale.ItemID,
					ItemName:     sale.ItemName,
					CategoryName: sale.CategoryName,
					TotalRevenue: decimal.Zero,
				},
				unitPriceSum: decimal.Zero,
				transactions: make(map[uuid.UUID]struct{}),
			}
			byItem[sale.ItemID] = acc
		}
		acc.sales.QuantitySold += sale.Quantity
		acc.sales.TotalRevenue = acc.sales.TotalRevenue.Add(sale.TotalPrice)
		acc.unitPriceSum = acc.unitPriceSum.Add(sale.UnitPrice)
		acc.lineCount++
		acc.transactions[sale.TransactionID] = struct{}{}
	}

	items := make([]pos.ItemSales, 0, len(byItem))
	for _, acc := range byItem {
		it := acc.sales
		it.AveragePrice = acc.unitPriceSum.Div(decimal.NewFromInt(acc.lineCount)).Round(2)
		it.TransactionCount = int64(len(acc.transactions))
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool {
		if c := items[i].TotalRevenue.Cmp(items[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return strings.Compare(items[i].ItemID.String(), items[j].ItemID.String()) < 0
	})

	return items
}

// topSellingItem returns the name of the item with the highest quantity
// sold. On ties the winner is the first in report order, which is itself
// deterministic.
func topSellingItem(items []pos.ItemSales) string {
	name := ""
	var best int64 = -1
	for _, it := range items {
		if it.QuantitySold > best {
			best = it.QuantitySold
			name = it.ItemName
		}
	}
	return name
}

// topRevenueItem returns the name of the highest-revenue item, which is
// the first entry in report order.
func topRevenueItem(items []pos.ItemSales) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].ItemName
}

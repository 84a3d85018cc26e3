package pos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemSales is the per-item slice of a sales report: everything sold under
// one item_id across the closed transactions in the window.
type ItemSales struct {
	ItemID       uuid.UUID       `json:"item_id"`
	ItemName     string          `json:"item_name"`
	CategoryName string          `json:"category_name"`
	QuantitySold int64           `json:"quantity_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`

	// AveragePrice is the unweighted mean of the unit prices snapshotted
	// on the contributing lines, rounded to 2 decimal places.
	AveragePrice decimal.Decimal `json:"average_price"`

	// TransactionCount is the number of distinct transactions the item
	// appeared in.
	TransactionCount int64 `json:"transaction_count"`
}

// ReportSummary holds window-level aggregates.
type ReportSummary struct {
	TotalRevenue            decimal.Decimal `json:"total_revenue"`
	TotalItemsSold          int64           `json:"total_items_sold"`
	TotalTransactions       int64           `json:"total_transactions"`
	AverageTransactionValue decimal.Decimal `json:"average_transaction_value"`
	TopSellingItem          string          `json:"top_selling_item,omitempty"`
	TopRevenueItem          string          `json:"top_revenue_item,omitempty"`
}

// SalesReport aggregates the Closed transactions whose closed_at falls in
// [StartDate, EndDate], inclusive on both ends. Cancelled transactions are
// excluded entirely, lines included.
//
// Items is ordered by TotalRevenue descending, ties broken by ItemID
// ascending, so report output is reproducible.
type SalesReport struct {
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	Items     []ItemSales   `json:"items"`
	Summary   ReportSummary `json:"summary"`
}

package pos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	// StatusOpen means the transaction accepts line mutations.
	StatusOpen Status = "open"

	// StatusClosed means payment was taken and change computed. Terminal.
	StatusClosed Status = "closed"

	// StatusCancelled means the transaction was abandoned before payment.
	// Terminal, contributes nothing to reports.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status permits no further mutation.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Payment holds the close-time financial result of a transaction.
// It exists only once the transaction is Closed; Paid is always >= the
// transaction total and Change is exactly Paid - total.
type Payment struct {
	Paid   decimal.Decimal `json:"paid_amount"`
	Change decimal.Decimal `json:"change_amount"`
}

// Transaction is a customer tab: an ordered set of lines plus lifecycle
// and financial state. Total is derived - it always equals the sum of the
// lines' TotalPrice, recomputed on every line mutation.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	CustomerName string          `json:"customer_name,omitempty"`
	Status       Status          `json:"status"`
	Total        decimal.Decimal `json:"total"`

	// Payment is nil until the transaction is Closed. Cancelled
	// transactions never carry one.
	Payment *Payment `json:"payment,omitempty"`

	// Lines is populated on detail reads and on close; list endpoints
	// return transactions without lines.
	Lines []Line `json:"lines,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ClosedAt is stamped on the transition to Closed or Cancelled.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// Line is one item-quantity entry within a transaction.
//
// UnitPrice is a snapshot of the item's catalog price at the moment the
// line was added. It is immutable afterwards: catalog price changes never
// retroactively alter open or closed transactions, and quantity updates
// keep the original snapshot.
type Line struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	CreatedAt     time.Time       `json:"created_at"`
}

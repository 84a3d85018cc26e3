// Package receipt renders printable summaries of closed transactions and
// delivers them, best effort, to an ESC/POS printer on a serial device.
//
// Rendering is a pure function of the closed transaction, so it is golden
// tested; device I/O lives in printer.go and is never allowed to fail a
// close.
package receipt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tillworks/till/internal/pos"
)

// width is the column count of a standard 80mm ESC/POS printer.
const width = 48

// Receipt is the printable summary of a closed transaction.
type Receipt struct {
	CustomerName string
	Lines        []pos.Line
	Total        decimal.Decimal
	Paid         decimal.Decimal
	Change       decimal.Decimal
}

// FromTransaction builds a Receipt from a Closed transaction. Returns an
// INVALID_STATE domain error for Open or Cancelled transactions, which
// have no payment to print.
func FromTransaction(txn *pos.Transaction) (*Receipt, error) {
	if txn.Status != pos.StatusClosed || txn.Payment == nil {
		return nil, pos.InvalidStatef("transaction %s is %s, only closed transactions have receipts", txn.ID, txn.Status)
	}
	return &Receipt{
		CustomerName: txn.CustomerName,
		Lines:        txn.Lines,
		Total:        txn.Total,
		Paid:         txn.Payment.Paid,
		Change:       txn.Payment.Change,
	}, nil
}

// Render produces the plain-text receipt body, 48 columns wide.
func (r *Receipt) Render() string {
	p := message.NewPrinter(language.English)
	divider := strings.Repeat("-", width)

	var b strings.Builder
	b.WriteString(center("RECEIPT"))
	b.WriteByte('\n')
	if r.CustomerName != "" {
		b.WriteString(center(r.CustomerName))
		b.WriteByte('\n')
	}
	b.WriteString(divider)
	b.WriteByte('\n')

	for _, line := range r.Lines {
		b.WriteString(fmt.Sprintf("%-24s%3d x %8s%10s",
			clip(line.ItemName, 24),
			line.Quantity,
			amount(p, line.UnitPrice),
			amount(p, line.TotalPrice),
		))
		b.WriteByte('\n')
	}

	b.WriteString(divider)
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("%-24s%24s", "TOTAL", amount(p, r.Total)))
	b.WriteByte('\n')
	b.WriteString(divider)
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("%-24s%24s", "Paid", amount(p, r.Paid)))
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("%-24s%24s", "Change", amount(p, r.Change)))
	b.WriteByte('\n')

	return b.String()
}

// amount formats a money value with locale digit grouping, two decimals.
// The fraction comes straight from the exact decimal; only the integer
// part (always in int64 range for till amounts) goes through the printer
// for grouping. Receipt amounts are never negative.
func amount(p *message.Printer, d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	dot := strings.LastIndex(fixed, ".")
	return p.Sprintf("%d", d.IntPart()) + fixed[dot:]
}

// center pads s to the receipt width, counting runes so accented names
// line up with the column layout (fmt string widths count runes too).
func center(s string) string {
	s = clip(s, width)
	pad := (width - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// clip truncates s to at most n runes, never splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tillworks/till/internal/config"
	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/report"
	"github.com/tillworks/till/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	From     string
	To       string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <daily|monthly|range>",
		Short: "Generate a sales report",
		Long: `Generate a sales report over closed transactions.

daily    trailing 24 hours
monthly  trailing 30 days
range    explicit window, requires --from and --to (RFC3339)

Example:
  till report daily
  till report range --from 2025-01-01T00:00:00Z --to 2025-02-01T00:00:00Z --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.From, "from", "", "window start, RFC3339 (range only)")
	cmd.Flags().StringVar(&opts.To, "to", "", "window end, RFC3339 (range only)")

	return cmd
}

func runReport(opts *ReportOptions, window string) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	s, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer s.Close()

	r := report.New(s)
	ctx := context.Background()

	var rep *pos.SalesReport
	switch window {
	case "daily":
		rep, err = r.Daily(ctx)
	case "monthly":
		rep, err = r.Monthly(ctx)
	case "range":
		if opts.From == "" || opts.To == "" {
			return WrapExitError(ExitCommandError, "range requires --from and --to", nil)
		}
		var from, to time.Time
		if from, err = time.Parse(time.RFC3339, opts.From); err != nil {
			return WrapExitError(ExitCommandError, "parse --from", err)
		}
		if to, err = time.Parse(time.RFC3339, opts.To); err != nil {
			return WrapExitError(ExitCommandError, "parse --to", err)
		}
		rep, err = r.Generate(ctx, from, to)
	default:
		return WrapExitError(ExitCommandError, fmt.Sprintf("unknown window %q", window), nil)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "generate report", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: os.Stdout}
	if f.Format == "json" {
		return f.PrintJSON(rep)
	}
	RenderReport(f, rep)
	return nil
}

// RenderReport writes a human-readable sales report.
func RenderReport(f *OutputFormatter, rep *pos.SalesReport) {
	p := message.NewPrinter(language.English)

	f.Printf("Sales report %s .. %s\n\n",
		rep.StartDate.Format(time.RFC3339),
		rep.EndDate.Format(time.RFC3339),
	)

	if len(rep.Items) > 0 {
		f.Printf("%-24s %-16s %6s %12s %10s %6s\n", "Item", "Category", "Qty", "Revenue", "Avg", "Txns")
		for _, it := range rep.Items {
			f.Printf("%-24s %-16s %6s %12s %10s %6s\n",
				it.ItemName,
				it.CategoryName,
				p.Sprintf("%d", it.QuantitySold),
				amount(p, it.TotalRevenue),
				amount(p, it.AveragePrice),
				p.Sprintf("%d", it.TransactionCount),
			)
		}
		f.Printf("\n")
	}

	sum := rep.Summary
	f.Printf("Transactions: %s\n", p.Sprintf("%d", sum.TotalTransactions))
	f.Printf("Items sold:   %s\n", p.Sprintf("%d", sum.TotalItemsSold))
	f.Printf("Revenue:      %s\n", amount(p, sum.TotalRevenue))
	f.Printf("Average:      %s\n", amount(p, sum.AverageTransactionValue))
	if sum.TopSellingItem != "" {
		f.Printf("Top seller:   %s\n", sum.TopSellingItem)
	}
	if sum.TopRevenueItem != "" {
		f.Printf("Top revenue:  %s\n", sum.TopRevenueItem)
	}
}

// amount formats a money value with digit grouping, two decimals, from
// the exact decimal. Report amounts are never negative.
func amount(p *message.Printer, d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	dot := strings.LastIndex(fixed, ".")
	return p.Sprintf("%d", d.IntPart()) + fixed[dot:]
}

package cli

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/lexstore/internal/aggregate"
	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/service"
	"github.com/roach88/lexstore/internal/store"
	"github.com/roach88/lexstore/internal/upsert"
)

// OrderOptions holds flags for the record-order command.
type OrderOptions struct {
	*RootOptions
	ID       string
	Customer string
	Total    float64
	Status   string
}

// RecordResult is the JSON payload of record-order and record-purchase.
type RecordResult struct {
	Record  record.Record  `json:"record"`
	Outcome upsert.Outcome `json:"outcome"`
}

// NewRecordOrderCommand creates the record-order command.
func NewRecordOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record-order",
		Short: "Record a completed checkout",
		Long: `Record an order reported by the payment side. Reporting the same --id
again stores it once.

Example:
  lexstore record-order --id pay-123 --customer "Ana García" --total 49.90`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordOrder(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "order id (generated when empty)")
	cmd.Flags().StringVar(&opts.Customer, "customer", "", "customer name")
	cmd.Flags().Float64Var(&opts.Total, "total", 0, "order total")
	cmd.Flags().StringVar(&opts.Status, "status", "", "order status (default pending)")

	return cmd
}

func runRecordOrder(opts *OrderOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	return opts.withService(cmd.Context(), func(svc *service.Service) error {
		order, outcome, err := svc.RecordOrder(cmd.Context(), service.OrderInput{
			ID:           opts.ID,
			CustomerName: opts.Customer,
			Total:        opts.Total,
			Status:       opts.Status,
		})
		if err != nil {
			return out.Fail("record order", err)
		}
		return out.Render(RecordResult{Record: order, Outcome: outcome}, func(w io.Writer) {
			fmt.Fprintf(w, "✓ order %s %s\n", order.ID, outcome)
		})
	})
}

// PurchaseOptions holds flags for the record-purchase command.
type PurchaseOptions struct {
	*RootOptions
	ID     string
	User   string
	Item   string
	Amount float64
}

// NewRecordPurchaseCommand creates the record-purchase command.
func NewRecordPurchaseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurchaseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record-purchase",
		Short: "Record a bought catalog item",
		Long: `Record the purchase of a catalog item. Buying a course also enrolls the
user in it.

Example:
  lexstore record-purchase --id pay-123 --user 42 --item derecho-familia`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordPurchase(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "purchase id (generated when empty)")
	cmd.Flags().StringVar(&opts.User, "user", "", "buyer's user id")
	cmd.Flags().StringVar(&opts.Item, "item", "", "catalog item id")
	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "amount paid (default catalog price)")

	return cmd
}

func runRecordPurchase(opts *PurchaseOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	return opts.withService(cmd.Context(), func(svc *service.Service) error {
		p, outcome, err := svc.RecordPurchase(cmd.Context(), service.PurchaseInput{
			ID:     opts.ID,
			UserID: opts.User,
			ItemID: opts.Item,
			Amount: opts.Amount,
		})
		if err != nil {
			return out.Fail("record purchase", err)
		}
		return out.Render(RecordResult{Record: p, Outcome: outcome}, func(w io.Writer) {
			fmt.Fprintf(w, "✓ purchase %s of %s %s\n", p.ID, p.ItemID, outcome)
		})
	})
}

// SalesReport is the JSON payload of the sales command.
type SalesReport struct {
	Orders    aggregate.SalesSummary    `json:"orders"`
	ByMonth   []aggregate.MonthRevenue  `json:"byMonth"`
	Purchases aggregate.PurchaseSummary `json:"purchases"`
	Catalog   []aggregate.CatalogCount  `json:"catalog"`
}

// NewSalesCommand creates the sales command.
func NewSalesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sales",
		Short: "Summarize orders, purchases and catalog",
		Long: `Print revenue, order counts by status and month, purchase totals by
item type, and catalog item counts.

Cancelled orders count as orders but add no revenue.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSales(rootOpts, cmd)
		},
	}
}

func runSales(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	orders, _, err := store.GetCollection[record.Order](ctx, st, record.CollectionOrders)
	if err != nil {
		return out.Fail("read orders", err)
	}
	purchases, _, err := store.GetCollection[record.Purchase](ctx, st, record.CollectionPurchases)
	if err != nil {
		return out.Fail("read purchases", err)
	}
	items, _, err := store.GetCollection[record.CatalogItem](ctx, st, record.CollectionCatalog)
	if err != nil {
		return out.Fail("read catalog", err)
	}

	report := SalesReport{
		Orders:    aggregate.Sales(orders),
		ByMonth:   aggregate.RevenueByMonth(orders),
		Purchases: aggregate.PurchaseTotals(purchases),
		Catalog:   aggregate.CatalogCounts(items),
	}
	return out.Render(report, func(w io.Writer) {
		writeSalesText(w, report)
	})
}

func writeSalesText(w io.Writer, r SalesReport) {
	fmt.Fprintf(w, "Revenue: %.2f  Orders: %d  Average ticket: %.2f\n",
		r.Orders.TotalRevenue, r.Orders.TotalOrders, r.Orders.AverageTicket)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	statuses := make([]string, 0, len(r.Orders.ByStatus))
	for s := range r.Orders.ByStatus {
		statuses = append(statuses, s)
	}
	slices.Sort(statuses)
	for _, s := range statuses {
		label := s
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(tw, "  %s\t%d\n", label, r.Orders.ByStatus[s])
	}
	for _, m := range r.ByMonth {
		fmt.Fprintf(tw, "  %s\t%d\t%.2f\n", m.Month, m.Orders, m.Revenue)
	}
	tw.Flush()

	fmt.Fprintf(w, "Purchases: %d  Total: %.2f\n", r.Purchases.Count, r.Purchases.Total)
	types := make([]string, 0, len(r.Purchases.ByType))
	for t := range r.Purchases.ByType {
		types = append(types, t)
	}
	slices.Sort(types)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range types {
		tt := r.Purchases.ByType[t]
		fmt.Fprintf(tw, "  %s\t%d\t%.2f\n", t, tt.Count, tt.Total)
	}
	tw.Flush()

	fmt.Fprintln(w, "Catalog:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range r.Catalog {
		fmt.Fprintf(tw, "  %s\t%d active\t%d inactive\n", c.Type, c.Active, c.Inactive)
	}
	tw.Flush()
}

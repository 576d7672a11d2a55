package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/domain/order"
	"github.com/xenking/flowershop/internal/storefront"
)

const defaultAPIURL = "http://localhost:8080"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	apiURL  string
	verbose bool
	out     io.Writer
	lg      *zap.Logger
	client  *storefront.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Browse the flower shop and place orders",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.lg != nil {
				_ = c.lg.Sync()
			}
		},
	}
	root.SetOut(out)

	apiURL := os.Getenv("FLOWERSHOP_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", apiURL, "shop API base URL (or FLOWERSHOP_API_URL env)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log background failures")

	root.AddCommand(
		c.shopsCmd(),
		c.flowersCmd(),
		c.couponsCmd(),
		c.favoriteCmd(),
		c.orderCmd(),
		c.ordersCmd(),
		c.statsCmd(),
	)
	return root
}

func (c *cli) init() error {
	c.lg = zap.NewNop()
	if c.verbose {
		lg, err := zap.NewDevelopment()
		if err != nil {
			return errors.Wrap(err, "init logger")
		}
		c.lg = lg
	}

	client, err := storefront.NewClient(c.apiURL)
	if err != nil {
		return errors.Wrap(err, "init client")
	}
	c.client = client
	return nil
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *cli) shopsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shops",
		Short: "List shops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shops, err := storefront.Retry(cmd.Context(), storefront.DefaultRetryPolicy, c.client.Shops)
			if err != nil {
				return err
			}
			w := c.table()
			_, _ = fmt.Fprintln(w, "ID\tNAME\tCATEGORY")
			for _, s := range shops {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, s.Category)
			}
			return w.Flush()
		},
	}
}

func (c *cli) flowersCmd() *cobra.Command {
	var (
		shopID string
		sort   string
	)
	cmd := &cobra.Command{
		Use:   "flowers",
		Short: "List flowers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, ok := flower.ParseSort(sort)
			if !ok {
				return errors.Errorf("invalid sort: %s", sort)
			}
			flowers, err := storefront.Retry(cmd.Context(), storefront.DefaultRetryPolicy,
				func(ctx context.Context) ([]flower.Flower, error) {
					return c.client.Flowers(ctx, shopID, s)
				})
			if err != nil {
				return err
			}
			w := c.table()
			_, _ = fmt.Fprintln(w, "ID\tNAME\tPRICE\tSHOP\tFAVORITE\tADDED")
			for _, f := range flowers {
				fav := ""
				if f.IsFavorite {
					fav = "*"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t$%s\t%s\t%s\t%s\n",
					f.ID, f.Name, f.Price.StringFixed(2), f.ShopID, fav, f.DateAdded.Format(time.DateOnly))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&shopID, "shop", "", "only flowers of this shop")
	cmd.Flags().StringVar(&sort, "sort", "", "name, price-low, price-high, date or favorites")
	return cmd
}

func (c *cli) couponsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coupons",
		Short: "List coupons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coupons, err := storefront.Retry(cmd.Context(), storefront.DefaultRetryPolicy, c.client.Coupons)
			if err != nil {
				return err
			}
			w := c.table()
			_, _ = fmt.Fprintln(w, "CODE\tDISCOUNT\tMIN ORDER\tEXPIRES\tACTIVE")
			for _, cp := range coupons {
				minOrder := "-"
				if cp.MinOrderAmount.Valid {
					minOrder = "$" + cp.MinOrderAmount.Decimal.StringFixed(2)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s%%\t%s\t%s\t%t\n",
					cp.Code, cp.Discount.String(), minOrder, cp.ExpiresAt.Format(time.DateOnly), cp.Active)
			}
			return w.Flush()
		},
	}
}

func (c *cli) favoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite FLOWER_ID",
		Short: "Toggle the favorite flag of a flower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.client.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "removed from"
			if f.IsFavorite {
				state = "added to"
			}
			_, _ = fmt.Fprintf(c.out, "%s %s favorites\n", f.Name, state)
			return nil
		},
	}
}

func (c *cli) orderCmd() *cobra.Command {
	var (
		customer order.Customer
		items    []string
		coupons  []string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Quote and place an order",
		Example: "  storefront order --name Ada --address '12 Garden Lane' " +
			"--item 1=2 --item 3=1 --coupon SPRING20",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := c.session(ctx, items)
			if err != nil {
				return err
			}
			for _, code := range coupons {
				if inel := s.ApplyCoupon(code, time.Now()); inel != nil {
					return errors.New(inel.Message())
				}
			}

			c.printQuote(s)
			if dryRun {
				return nil
			}

			req := s.OrderRequest(customer)
			o, err := storefront.Retry(ctx, storefront.DefaultRetryPolicy,
				func(ctx context.Context) (*order.Order, error) {
					return c.client.SubmitOrder(ctx, req)
				})
			if err != nil {
				return err
			}
			s.Reset()
			_, _ = fmt.Fprintf(c.out, "\nOrder %s placed, total $%s\n", o.ID, o.Total.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&customer.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&customer.Email, "email", "", "customer email")
	cmd.Flags().StringVar(&customer.Phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&customer.Address, "address", "", "delivery address")
	cmd.Flags().StringArrayVar(&items, "item", nil, "FLOWER_ID=QUANTITY, repeatable")
	cmd.Flags().StringArrayVar(&coupons, "coupon", nil, "coupon code, repeatable")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the quote without placing the order")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

// session builds a cart from FLOWER_ID=QUANTITY arguments using the live
// catalog.
func (c *cli) session(ctx context.Context, items []string) (*storefront.Session, error) {
	flowers, err := storefront.Retry(ctx, storefront.DefaultRetryPolicy,
		func(ctx context.Context) ([]flower.Flower, error) {
			return c.client.Flowers(ctx, "", "")
		})
	if err != nil {
		return nil, err
	}
	coupons, err := storefront.Retry(ctx, storefront.DefaultRetryPolicy, c.client.Coupons)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]flower.Flower, len(flowers))
	for _, f := range flowers {
		byID[f.ID] = f
	}

	s := storefront.NewSession(coupons, storefront.WithLogger(c.lg))
	for _, arg := range items {
		id, qty, err := parseItem(arg)
		if err != nil {
			return nil, err
		}
		f, ok := byID[id]
		if !ok {
			return nil, errors.Errorf("flower not found: %s", id)
		}
		s.AddToCart(f, qty)
	}
	return s, nil
}

func parseItem(arg string) (string, int, error) {
	id, rawQty, ok := strings.Cut(arg, "=")
	if !ok {
		return strings.TrimSpace(arg), 1, nil
	}
	qty, err := strconv.Atoi(strings.TrimSpace(rawQty))
	if err != nil || qty <= 0 {
		return "", 0, errors.Errorf("invalid quantity in %q", arg)
	}
	return strings.TrimSpace(id), qty, nil
}

func (c *cli) printQuote(s *storefront.Session) {
	w := c.table()
	_, _ = fmt.Fprintln(w, "FLOWER\tQTY\tPRICE\tLINE")
	for _, l := range s.Lines() {
		_, _ = fmt.Fprintf(w, "%s\t%d\t$%s\t$%s\n",
			l.Flower.Name, l.Quantity, l.Flower.Price.StringFixed(2),
			l.Flower.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).StringFixed(2))
	}
	_ = w.Flush()

	q := s.Quote()
	_, _ = fmt.Fprintf(c.out, "\nSubtotal  $%s\n", q.Subtotal.StringFixed(2))
	for _, cp := range s.Applied() {
		_, _ = fmt.Fprintf(c.out, "Coupon    %s (%s%%)\n", cp.Code, cp.Discount.String())
	}
	_, _ = fmt.Fprintf(c.out, "Discount -$%s\n", q.Discount.StringFixed(2))
	_, _ = fmt.Fprintf(c.out, "Total     $%s\n", q.Total.StringFixed(2))
}

func (c *cli) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List placed orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orders, err := storefront.Retry(cmd.Context(), storefront.DefaultRetryPolicy, c.client.Orders)
			if err != nil {
				return err
			}
			w := c.table()
			_, _ = fmt.Fprintln(w, "ID\tCUSTOMER\tITEMS\tTOTAL\tCOUPONS\tCREATED")
			for _, o := range orders {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t$%s\t%s\t%s\n",
					o.ID, o.Customer.Name, len(o.Items), o.Total.StringFixed(2),
					strings.Join(o.CouponCodes, ","), o.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show order analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := storefront.Retry(cmd.Context(), storefront.DefaultRetryPolicy, c.client.Stats)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.out, "Orders     %d\n", st.Orders)
			_, _ = fmt.Fprintf(c.out, "Revenue    $%s\n", st.Revenue.StringFixed(2))
			_, _ = fmt.Fprintf(c.out, "Discounts  $%s\n", st.Discounts.StringFixed(2))
			_, _ = fmt.Fprintf(c.out, "Average    $%s\n\n", st.AverageOrderValue.StringFixed(2))

			w := c.table()
			_, _ = fmt.Fprintln(w, "FLOWER\tQTY\tREVENUE")
			for _, f := range st.TopFlowers {
				_, _ = fmt.Fprintf(w, "%s\t%d\t$%s\n", f.FlowerID, f.Quantity, f.Revenue.StringFixed(2))
			}
			return w.Flush()
		},
	}
}

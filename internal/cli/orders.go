package cli

import (
	"fmt"
	"io"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/spf13/cobra"
)

// OrdersOptions holds flags for the orders subcommands.
type OrdersOptions struct {
	*RootOptions
	Page     int
	PageSize int
	Status   string
}

// NewOrdersCommand groups order history operations.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Browse and manage placed orders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrders(cmd, opts, func(a *App, out *OutputFormatter) error {
				page, err := a.Orders.List(cmd.Context(), domain.OrderQuery{
					Page:     opts.Page,
					PageSize: opts.PageSize,
					Status:   domain.OrderStatus(opts.Status),
				})
				if err != nil {
					return err
				}
				return out.Success(page, false, func(w io.Writer) { writeOrders(w, page) })
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	list.Flags().IntVar(&opts.Page, "page", 1, "page number")
	list.Flags().IntVar(&opts.PageSize, "page-size", 10, "orders per page")
	list.Flags().StringVar(&opts.Status, "status", "", "filter by status")

	get := &cobra.Command{
		Use:   "get <order-id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrders(cmd, opts, func(a *App, out *OutputFormatter) error {
				order, err := a.Orders.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return out.Success(order, false, func(w io.Writer) { writeOrder(w, order) })
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cancel := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrders(cmd, opts, func(a *App, out *OutputFormatter) error {
				msg, err := a.Orders.Cancel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data := map[string]string{"order_id": args[0], "message": msg}
				return out.Success(data, false, func(w io.Writer) { fmt.Fprintln(w, msg) })
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	track := &cobra.Command{
		Use:   "track <order-id>",
		Short: "Show shipment tracking for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrders(cmd, opts, func(a *App, out *OutputFormatter) error {
				info, err := a.Orders.Tracking(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return out.Success(info, false, func(w io.Writer) {
					fmt.Fprintf(w, "Order %s: %s", info.ID, info.Status)
					if info.TrackingNumber != "" {
						fmt.Fprintf(w, " (tracking %s)", info.TrackingNumber)
					}
					fmt.Fprintln(w)
				})
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(list, get, cancel, track)
	return cmd
}

func withOrders(cmd *cobra.Command, opts *OrdersOptions, fn func(a *App, out *OutputFormatter) error) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	cmd.SetContext(ctx)

	app, err := newApp(ctx, opts.RootOptions, service.NewWriterNotifier(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app, &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()})
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// CartOptions holds flags for the cart subcommands.
type CartOptions struct {
	*RootOptions
	Refresh  bool
	Quantity int
	Name     string
	Price    string
	ImageURL string
}

// NewCartCommand groups the cart operations.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, opts, func(a *cartRun) (*service.Mutation, error) {
				if opts.Refresh {
					return nil, a.app.Cart.Refresh(a.ctx)
				}
				return nil, a.app.Cart.Load(a.ctx)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	show.Flags().BoolVar(&opts.Refresh, "refresh", false, "refetch the server cart even if already loaded")

	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := opts.unitData()
			if err != nil {
				return err
			}
			return runCart(cmd, opts, func(a *cartRun) (*service.Mutation, error) {
				m, err := a.app.Cart.AddItem(a.ctx, args[0], opts.Quantity, unit)
				return &m, err
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	add.Flags().IntVarP(&opts.Quantity, "quantity", "q", 1, "quantity to add")
	add.Flags().StringVar(&opts.Name, "name", "", "product name (skips the catalog lookup together with --price)")
	add.Flags().StringVar(&opts.Price, "price", "", "unit price")
	add.Flags().StringVar(&opts.ImageURL, "image", "", "product image url")

	set := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid quantity %q", args[1])}
			}
			return runCart(cmd, opts, func(a *cartRun) (*service.Mutation, error) {
				m, err := a.app.Cart.UpdateQuantity(a.ctx, args[0], qty)
				return &m, err
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, opts, func(a *cartRun) (*service.Mutation, error) {
				m, err := a.app.Cart.RemoveItem(a.ctx, args[0])
				return &m, err
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, opts, func(a *cartRun) (*service.Mutation, error) {
				m, err := a.app.Cart.ClearCart(a.ctx)
				return &m, err
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	products := &cobra.Command{
		Use:   "products",
		Short: "Show catalog details for every product in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext(cmd)
			defer stop()

			app, err := newApp(ctx, opts.RootOptions, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			products, err := app.Cart.Products(ctx)
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(products, false, func(w io.Writer) {
				list := make([]domain.Product, 0, len(products))
				for _, p := range products {
					list = append(list, *p)
				}
				writeProducts(w, list)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(show, add, set, remove, clearCmd, products)
	return cmd
}

// unitData returns nil unless both name and price were given.
func (o *CartOptions) unitData() (*domain.UnitData, error) {
	if o.Name == "" || o.Price == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(o.Price)
	if err != nil || price.IsNegative() {
		return nil, &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid price %q", o.Price)}
	}
	return &domain.UnitData{Name: o.Name, Price: price, ImageURL: o.ImageURL}, nil
}

type cartRun struct {
	app *App
	ctx context.Context
}

// runCart runs op against a freshly wired app and prints the resulting cart. A load, or a mutation
// the server accepted, whose refetch failed still prints the local view and succeeds.
func runCart(cmd *cobra.Command, opts *CartOptions, op func(a *cartRun) (*service.Mutation, error)) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	app, err := newApp(ctx, opts.RootOptions, service.NewWriterNotifier(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer app.Close()

	m, opErr := op(&cartRun{app: app, ctx: ctx})
	stale := service.IsStale(opErr) && (m == nil || m.State == service.MutationSucceeded)
	if opErr != nil && !stale {
		return opErr
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	snap := app.Cart.Snapshot(ctx)
	return out.Success(snap, stale, func(w io.Writer) {
		writeCart(w, snap)
	})
}

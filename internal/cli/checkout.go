package cli

import (
	"io"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/spf13/cobra"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Address domain.ShippingAddress
	Payment string
}

// NewCheckoutCommand places an order from the current cart.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&opts.Address.Street, "street", "", "shipping street")
	cmd.Flags().StringVar(&opts.Address.City, "city", "", "shipping city")
	cmd.Flags().StringVar(&opts.Address.State, "state", "", "shipping state")
	cmd.Flags().StringVar(&opts.Address.ZipCode, "zip", "", "shipping zip code")
	cmd.Flags().StringVar(&opts.Address.PhoneNumber, "phone", "", "contact phone number")
	cmd.Flags().StringVar(&opts.Payment, "payment", string(domain.PaymentMethodCard), "payment method (card|cash_on_delivery)")

	return cmd
}

func runCheckout(cmd *cobra.Command, opts *CheckoutOptions) error {
	method := domain.PaymentMethod(opts.Payment)
	if err := service.ValidateCheckout(opts.Address, method); err != nil {
		return err
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	app, err := newApp(ctx, opts.RootOptions, service.NewWriterNotifier(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer app.Close()

	// the server cart is the source of truth for what gets ordered
	if err := app.Cart.Load(ctx); err != nil {
		app.Logger.Warn("cart load before checkout failed, ordering local lines", "error", err)
	}

	order, err := app.Checkout.PlaceOrder(ctx, opts.Address, method)
	if err != nil {
		return err
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(order, false, func(w io.Writer) {
		writeOrder(w, order)
	})
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewIdentityCommand shows or resets the cart identity.
func NewIdentityCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the cart identity",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the cart id, creating one if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentity(cmd, opts, func(a *App) (string, error) {
				return a.Cart.CartID(cmd.Context()), nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Start over with a new cart id and an empty cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentity(cmd, opts, func(a *App) (string, error) {
				return a.ResetIdentity(cmd.Context())
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func runIdentity(cmd *cobra.Command, opts *RootOptions, fn func(a *App) (string, error)) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	cmd.SetContext(ctx)

	app, err := newApp(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	id, err := fn(app)
	if err != nil {
		return err
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(map[string]string{"cart_id": id}, false, func(w io.Writer) {
		fmt.Fprintln(w, id)
	})
}

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	apphttp "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port string
}

// NewServeCommand runs the local HTTP facade, plus the cart event listener when brokers are configured.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cart over a local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "listen port (overrides http.port)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, opts.RootOptions, service.LogNotifier{})
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	if opts.Port != "" {
		cfg.HTTP.Port = opts.Port
	}

	if err := app.Cart.Load(ctx); err != nil {
		app.Logger.Warn("initial cart load failed, serving local cart", "error", err)
	}

	httpCfg := apphttp.Config{
		Port:               cfg.HTTP.Port,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		ShutdownTimeout:    cfg.HTTP.ShutdownTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
	}
	timeout := httpCfg.RequestTimeout
	router := apphttp.NewRouter(httpCfg, apphttp.Handlers{
		Cart:     apphttp.NewCartHandler(app.Cart, timeout),
		Checkout: apphttp.NewCheckoutHandler(app.Checkout, timeout),
		Orders:   apphttp.NewOrdersHandler(app.Orders, timeout),
		Products: apphttp.NewProductHandler(app.Catalog, timeout),
		Metrics:  app.Registry,
	}, app.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apphttp.Serve(gctx, httpCfg, router, app.Logger)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		p := poller.NewPoller(app.Cart, app.Cart.CartID(ctx), cfg.Kafka.Topic, app.Logger, app.Metrics, cfg.Kafka.Brokers...)
		g.Go(func() error {
			defer p.Close()
			p.Run(gctx)
			return nil
		})
	} else {
		app.Logger.Info("no kafka brokers configured, cart event listener disabled")
	}

	return g.Wait()
}

// commandContext gives one-shot commands the same interrupt handling as serve.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

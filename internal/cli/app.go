package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/identity"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/remote"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App is the wired object graph shared by every command.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Identity *identity.Provider
	Store    *store.Store
	Catalog  *catalog.Gateway
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService

	closers []io.Closer
}

// newApp loads configuration and builds the services. Notifications go to notifier.
func newApp(ctx context.Context, opts *RootOptions, notifier service.Notifier) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "invalid configuration", Err: err}
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.Init(cfg.Log)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "failed to init logger", Err: err}
	}

	app := &App{Config: cfg, Logger: log}

	repo, err := repository.NewSQLiteRepository(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	app.closers = append(app.closers, repo)
	if err := repo.RunMigrations(); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector())
	app.Metrics = metrics.New(app.Registry)

	client := remote.NewClient(remote.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, app.Metrics, log)

	var productCache cache.ProductCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, product cache disabled", "addr", cfg.Redis.Addr, "error", err)
			rdb.Close()
		} else {
			app.closers = append(app.closers, rdb)
			productCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
		}
	}

	app.Identity = identity.NewProvider(repo, log)
	app.Store = store.New(ctx, repo, log)
	app.Catalog = catalog.NewGateway(client, productCache, cfg.API.ImagesBaseURL, log)
	app.Cart = service.NewCartService(service.CartServiceConfig{
		API:      client,
		Store:    app.Store,
		Identity: app.Identity,
		Catalog:  app.Catalog,
		Notifier: notifier,
		Metrics:  app.Metrics,
		Logger:   log,
	})
	app.Checkout = service.NewCheckoutService(client, app.Store, app.Cart, notifier, app.Metrics, log)
	app.Orders = service.NewOrderService(client, notifier, log)

	return app, nil
}

// ResetIdentity starts a fresh cart: a new id, an empty local store and a forced reload.
func (a *App) ResetIdentity(ctx context.Context) (string, error) {
	id, err := a.Identity.Reset(ctx)
	if err != nil {
		return "", err
	}
	a.Store.Clear()
	a.Cart.ForgetLoaded()
	return id, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.Logger != nil {
			a.Logger.Warn("close failed", "error", err)
		}
	}
}

package cli

import (
	"fmt"
	"io"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/spf13/cobra"
)

// ProductsOptions holds flags for the products subcommands.
type ProductsOptions struct {
	*RootOptions
	Filter domain.ProductFilter
	Fresh  bool
}

// NewProductsCommand groups catalog lookups.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}

	get := &cobra.Command{
		Use:   "get <product-id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, opts, func(a *App, out *OutputFormatter) error {
				if opts.Fresh {
					a.Catalog.Invalidate(args[0])
				}
				p, err := a.Catalog.GetProduct(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return out.Success(p, false, func(w io.Writer) {
					fmt.Fprintf(w, "%s  %s\n%s\nPrice: %s  Stock: %d\n", p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.Stock)
					if img := a.Catalog.UnitData(p).ImageURL; img != "" {
						fmt.Fprintf(w, "Image: %s\n", img)
					}
				})
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	get.Flags().BoolVar(&opts.Fresh, "fresh", false, "bypass the product cache")

	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, opts, func(a *App, out *OutputFormatter) error {
				page, err := a.Catalog.ListProducts(cmd.Context(), opts.Filter)
				if err != nil {
					return err
				}
				return out.Success(page, false, func(w io.Writer) { writeProducts(w, page.Products) })
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	list.Flags().IntVar(&opts.Filter.Page, "page", 1, "page number")
	list.Flags().IntVar(&opts.Filter.PageSize, "page-size", 20, "products per page")
	list.Flags().StringVar(&opts.Filter.Category, "category", "", "category id")
	list.Flags().StringVar(&opts.Filter.Search, "search", "", "search text")
	list.Flags().StringVar(&opts.Filter.SortBy, "sort-by", "", "sort field (name|price|createdAt)")
	list.Flags().StringVar(&opts.Filter.SortOrder, "sort-order", "", "asc or desc")

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, opts, func(a *App, out *OutputFormatter) error {
				cats, err := a.Catalog.ListCategories(cmd.Context())
				if err != nil {
					return err
				}
				return out.Success(cats, false, func(w io.Writer) {
					for _, c := range cats {
						fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Name)
					}
				})
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(get, list, categories)
	return cmd
}

func withCatalog(cmd *cobra.Command, opts *ProductsOptions, fn func(a *App, out *OutputFormatter) error) error {
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

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // remote failure
	ExitCommandError = 2 // bad input or configuration
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) || errors.Is(err, service.ErrEmptyCart) || errors.Is(err, store.ErrInvalidQuantity) {
		return ExitCommandError
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Stale  bool        `json:"stale,omitempty"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data as JSON, or calls text to render it for humans.
func (f *OutputFormatter) Success(data interface{}, stale bool, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data, Stale: stale})
	}
	text(f.Writer)
	if stale {
		fmt.Fprintln(f.Writer, "(showing local cart; the server could not be reached)")
	}
	return nil
}

func writeCart(w io.Writer, snap domain.CartSnapshot) {
	if len(snap.Items) == 0 {
		fmt.Fprintln(w, "Cart is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tPRICE\tQTY\tSUBTOTAL")
	for _, l := range snap.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", l.ProductID, l.Name, l.Price.StringFixed(2), l.Quantity, l.Subtotal().StringFixed(2))
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %s\n", snap.Total.StringFixed(2))
}

func writeOrder(w io.Writer, o *domain.Order) {
	fmt.Fprintf(w, "Order %s  %s  total %s\n", o.ID, o.Status, o.TotalAmount.StringFixed(2))
	for _, it := range o.Items {
		fmt.Fprintf(w, "  %s x%d @ %s\n", it.ProductName, it.Quantity, it.UnitPrice.StringFixed(2))
	}
}

func writeOrders(w io.Writer, page *domain.OrderPage) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTOTAL\tCREATED")
	for _, o := range page.Orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, o.Status, o.TotalAmount.StringFixed(2), o.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
	fmt.Fprintf(w, "Page %d/%d (%d orders)\n", page.Pagination.CurrentPage, page.Pagination.TotalPages, page.Pagination.TotalItems)
}

func writeProducts(w io.Writer, products []domain.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
	}
	tw.Flush()
}

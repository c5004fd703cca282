package domain

import "github.com/shopspring/decimal"

type CartLine struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// Subtotal is price * quantity for a single line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// UnitData is the display data captured for a product when it is added to the cart.
type UnitData struct {
	Name     string
	Price    decimal.Decimal
	ImageURL string
}

// CartSnapshot is the server view of a cart. Total is whatever the server reported.
type CartSnapshot struct {
	ID       string          `json:"id"`
	Items    []CartLine      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// SumLines returns Σ price·quantity over lines.
func SumLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

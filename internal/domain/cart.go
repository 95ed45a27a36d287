package domain

import (
	"time"
)

// CartLine is one line of the cart being priced. UnitPrice is the catalog
// price in minor units; the engine never looks prices up itself.
type CartLine struct {
	VariantID  string `json:"variant_id"`
	ProductID  string `json:"product_id,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	BrandID    string `json:"brand_id,omitempty"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Subtotal sums the line totals of the given cart lines.
func Subtotal(lines []CartLine) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.LineTotal()
	}
	return sum
}

// EvalContext is the per-line evaluation context rules are matched against.
type EvalContext struct {
	VariantID   string
	ProductID   string
	CategoryID  string
	BrandID     string
	Currency    string
	Qty         int
	AccountType string
	Now         time.Time
}

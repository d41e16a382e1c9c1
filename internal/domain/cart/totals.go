package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Totals is the derived price summary of a set of line items.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Calculate sums unit price times quantity over items and adds the flat
// shipping fee. It has no side effects and performs no rounding.
func Calculate(items []LineItem, shipping decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total())
	}
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// Total is the unit price times the quantity.
func (it LineItem) Total() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Totals computes the totals of the cart's current contents.
func (c *Cart) Totals(shipping decimal.Decimal) Totals {
	return Calculate(c.items, shipping)
}

// Currency renders amounts for display, e.g. "R$ 72,30".
type Currency struct {
	Symbol string
}

// Format renders d with two decimals and a comma as decimal separator.
func (c Currency) Format(d decimal.Decimal) string {
	amount := strings.Replace(d.StringFixed(2), ".", ",", 1)
	if c.Symbol == "" {
		return amount
	}
	return c.Symbol + " " + amount
}

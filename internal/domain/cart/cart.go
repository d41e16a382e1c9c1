// Package cart implements the per-session shopping cart and the order totals
// derived from it.
//
// A Cart is never persisted. It lives for the duration of a session. A
// successful checkout removes the lines it submitted; the cart is discarded
// when the session ends.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned when a quantity below 1 is requested.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// LineItem is a single product entry in the cart.
type LineItem struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Image     string
}

// Cart holds line items keyed by product id, in the order they were first
// added. Every stored entry has Quantity >= 1.
//
// Cart is not safe for concurrent use; Registry provides per-session
// exclusive access.
type Cart struct {
	items []LineItem
	index map[string]int
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// AddItem merges item into the cart. When an entry with the same id exists
// only its quantity changes; otherwise item is appended. Items with a
// quantity below 1 are ignored.
func (c *Cart) AddItem(item LineItem) {
	if item.Quantity < 1 {
		return
	}
	if i, ok := c.index[item.ID]; ok {
		c.items[i].Quantity += item.Quantity
		return
	}
	c.index[item.ID] = len(c.items)
	c.items = append(c.items, item)
}

// RemoveItem deletes the entry with the given id. Unknown ids are ignored.
func (c *Cart) RemoveItem(id string) {
	i, ok := c.index[id]
	if !ok {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ID] = j
	}
}

// UpdateQuantity sets the quantity of an existing entry. Unknown ids are
// ignored. A quantity below 1 is rejected and leaves the cart unchanged;
// use RemoveItem to drop an entry.
func (c *Cart) UpdateQuantity(id string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if i, ok := c.index[id]; ok {
		c.items[i].Quantity = quantity
	}
	return nil
}

// Subtract lowers each matching entry by the given quantity and drops
// entries that reach zero. Ids missing from the cart are ignored.
func (c *Cart) Subtract(items []LineItem) {
	for _, it := range items {
		i, ok := c.index[it.ID]
		if !ok {
			continue
		}
		c.items[i].Quantity -= it.Quantity
		if c.items[i].Quantity < 1 {
			c.RemoveItem(it.ID)
		}
	}
}

// Clear removes every entry.
func (c *Cart) Clear() {
	c.items = nil
	clear(c.index)
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the entry for id.
func (c *Cart) Get(id string) (LineItem, bool) {
	i, ok := c.index[id]
	if !ok {
		return LineItem{}, false
	}
	return c.items[i], true
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

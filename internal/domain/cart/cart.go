// Package cart implements the in-memory order basket for a single student
// session. A cart is never persisted: it lives exactly as long as the
// session that owns it and is rebuilt from scratch on reconnect.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/canteen-preorder/internal/domain/product"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrProductUnavailable = errors.New("product is not available")
)

// Line is a single product entry in a cart. Quantity is always >= 1;
// a line whose quantity would drop to zero is removed instead.
type Line struct {
	Product  product.Product
	Quantity int
}

// Subtotal returns price x quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the selected products of one session keyed by product ID.
// It is confined to a single session and performs no I/O, so it needs no
// locking of its own.
type Cart struct {
	lines map[string]*Line
	// order preserves insertion order of product IDs for stable iteration.
	order []string
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// Add inserts the product with the given quantity, or increments the
// existing line. It rejects non-positive quantities and unavailable
// products; the cart is left unchanged on error.
func (c *Cart) Add(p product.Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if !p.Available {
		return ErrProductUnavailable
	}

	if l, ok := c.lines[p.ID]; ok {
		l.Quantity += qty
		l.Product = p
		return nil
	}

	c.lines[p.ID] = &Line{Product: p, Quantity: qty}
	c.order = append(c.order, p.ID)
	return nil
}

// Remove decrements the line for productID by qty, deleting the line when
// its quantity reaches zero. Removing from a line that does not exist is a
// no-op, so Remove is safe to retry.
func (c *Cart) Remove(productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	l, ok := c.lines[productID]
	if !ok {
		return nil
	}

	l.Quantity -= qty
	if l.Quantity <= 0 {
		c.delete(productID)
	}
	return nil
}

// Total returns the grand total of the cart, recomputed from the current
// line set on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range c.order {
		total = total.Add(c.lines[id].Subtotal())
	}
	return total
}

// Lines returns the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

// LinesForStall returns only the lines whose product belongs to stallID,
// in insertion order.
func (c *Cart) LinesForStall(stallID string) []Line {
	var out []Line
	for _, id := range c.order {
		if l := c.lines[id]; l.Product.StallID == stallID {
			out = append(out, *l)
		}
	}
	return out
}

// Stalls returns the distinct stall IDs present in the cart, in first-seen
// order. A cart spanning multiple stalls must be submitted per stall.
func (c *Cart) Stalls() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range c.order {
		sid := c.lines[id].Product.StallID
		if _, ok := seen[sid]; !ok {
			seen[sid] = struct{}{}
			out = append(out, sid)
		}
	}
	return out
}

// RemoveStall drops every line belonging to stallID, leaving lines from
// other stalls untouched. Used after a successful per-stall submission.
func (c *Cart) RemoveStall(stallID string) {
	// Collect first: delete splices c.order and would shift unvisited
	// entries under an in-place iteration.
	var ids []string
	for _, id := range c.order {
		if c.lines[id].Product.StallID == stallID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		c.delete(id)
	}
}

// Len returns the number of lines in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = make(map[string]*Line)
	c.order = c.order[:0]
}

func (c *Cart) delete(productID string) {
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Package storefront holds the customer-side state of a shopping session
// and a typed client for the shop API.
package storefront

import (
	"slices"

	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/pricing"
)

// Line is one cart entry. Quantity is always at least 1.
type Line struct {
	Flower   flower.Flower
	Quantity int
}

// Cart is an ordered set of lines keyed by flower id. It is not safe for
// concurrent use.
type Cart struct {
	lines []Line
}

// Add puts qty units of f in the cart, merging with an existing line.
// Non-positive quantities are ignored.
func (c *Cart) Add(f flower.Flower, qty int) {
	if qty <= 0 {
		return
	}
	if i := c.index(f.ID); i >= 0 {
		c.lines[i].Quantity += qty
		return
	}
	c.lines = append(c.lines, Line{Flower: f, Quantity: qty})
}

// SetQuantity replaces the quantity of a line. A quantity of zero or less
// removes the line. It reports whether the flower was in the cart.
func (c *Cart) SetQuantity(flowerID string, qty int) bool {
	i := c.index(flowerID)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
		return true
	}
	c.lines[i].Quantity = qty
	return true
}

// Remove drops the line for flowerID and reports whether it existed.
func (c *Cart) Remove(flowerID string) bool {
	return c.SetQuantity(flowerID, 0)
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of distinct flowers.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Units returns the total quantity across lines.
func (c *Cart) Units() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// PricingLines converts the cart into pricing engine input using the
// displayed catalog prices.
func (c *Cart) PricingLines() []pricing.Line {
	out := make([]pricing.Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = pricing.Line{FlowerID: l.Flower.ID, Price: l.Flower.Price, Quantity: l.Quantity}
	}
	return out
}

func (c *Cart) index(flowerID string) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.Flower.ID == flowerID })
}

// Package cart holds the in-memory shopping cart. Contents live for the
// process only; a restart starts from an empty cart.
package cart

import (
	"fmt"
	"sync"

	"github.com/betza/betza/internal/gateway"
)

// Line is one product with its quantity. Quantity is always >= 1 while the
// line exists; a line whose quantity reaches zero is removed.
type Line struct {
	Product  gateway.Product
	Quantity int
}

// Subtotal is the line's unit price times quantity.
func (l Line) Subtotal() float64 {
	return l.Product.Price * float64(l.Quantity)
}

// Cart maps products to quantities with at most one line per product ID,
// preserving insertion order. The zero value is an empty, usable cart.
type Cart struct {
	mu    sync.RWMutex
	lines []Line
}

// Add inserts a line for the product or increments an existing one.
// Quantities below 1 are rejected.
func (c *Cart) Add(product gateway.Product, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("cart: quantity %d is below 1", quantity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID {
			c.lines[i].Quantity += quantity
			return nil
		}
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: quantity})
	return nil
}

// SetQuantity replaces an existing line's quantity. Zero or negative
// removes the line. Calling it for a product not in the cart is a no-op:
// this path reconciles existing lines, Add creates them.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID != productID {
			continue
		}
		if quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
		c.lines[i].Quantity = quantity
		return
	}
}

// Remove deletes the product's line if present.
func (c *Cart) Remove(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.lines) == 0 {
		return nil
	}
	dup := make([]Line, len(c.lines))
	copy(dup, c.lines)
	return dup
}

// Line returns the line for a product, if present.
func (c *Cart) Line(productID int64) (Line, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, line := range c.lines {
		if line.Product.ID == productID {
			return line, true
		}
	}
	return Line{}, false
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// Total is the sum of all line subtotals.
func (c *Cart) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0.0
	for _, line := range c.lines {
		total += line.Subtotal()
	}
	return total
}

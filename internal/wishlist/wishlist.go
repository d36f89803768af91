// Package wishlist mirrors per-product wishlist membership against the
// remote store. The remote store is the source of truth; the local cache
// exists only for immediate UI feedback and is flipped after, never before,
// a successful remote call.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/betza/betza/internal/gateway"
)

// ErrNotAuthenticated is returned when a wishlist operation needs a user
// and none is signed in.
var ErrNotAuthenticated = errors.New("wishlist: not authenticated")

const table = "wishlist"

// Coordinator tracks membership for the current user.
type Coordinator struct {
	store gateway.Store
	user  func() *gateway.User

	mu      sync.RWMutex
	members map[int64]gateway.Product
}

// New builds a Coordinator. user reports the currently authenticated user,
// or nil.
func New(store gateway.Store, user func() *gateway.User) *Coordinator {
	return &Coordinator{
		store:   store,
		user:    user,
		members: map[int64]gateway.Product{},
	}
}

// Contains reports cached membership without a remote call.
func (c *Coordinator) Contains(productID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[productID]
	return ok
}

// Products returns the cached wishlist contents.
func (c *Coordinator) Products() []gateway.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]gateway.Product, 0, len(c.members))
	for _, p := range c.members {
		out = append(out, p)
	}
	return out
}

// CheckMembership queries the remote store for a (user, product) record.
// Without an authenticated user membership is false and no request is made.
func (c *Coordinator) CheckMembership(ctx context.Context, productID int64) (bool, error) {
	user := c.user()
	if user == nil {
		return false, nil
	}
	var entry gateway.WishlistEntry
	err := c.store.SelectSingle(ctx, gateway.Query{
		Table:   table,
		Filters: []gateway.Filter{gateway.Eq("user_id", user.ID), gateway.Eq("product_id", productID)},
	}, &entry)
	if errors.Is(err, gateway.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// Toggle flips membership for the product, remote-first. It reports the
// new membership state. On remote failure the cache is left unchanged so
// it cannot diverge from the remote store.
func (c *Coordinator) Toggle(ctx context.Context, product gateway.Product) (bool, error) {
	user := c.user()
	if user == nil {
		return false, ErrNotAuthenticated
	}

	if c.Contains(product.ID) {
		err := c.store.Delete(ctx, table,
			gateway.Eq("user_id", user.ID), gateway.Eq("product_id", product.ID))
		if err != nil {
			return true, fmt.Errorf("remove from wishlist: %w", err)
		}
		c.mu.Lock()
		delete(c.members, product.ID)
		c.mu.Unlock()
		return false, nil
	}

	err := c.store.Insert(ctx, table, gateway.WishlistEntry{UserID: user.ID, ProductID: product.ID})
	if err != nil {
		return false, fmt.Errorf("add to wishlist: %w", err)
	}
	c.mu.Lock()
	c.members[product.ID] = product
	c.mu.Unlock()
	return true, nil
}

// Refresh reloads the full wishlist with product expansion and replaces
// the cache. Without a user it just clears the cache.
func (c *Coordinator) Refresh(ctx context.Context) ([]gateway.Product, error) {
	user := c.user()
	if user == nil {
		c.Reset()
		return nil, nil
	}

	var entries []gateway.WishlistEntry
	err := c.store.Select(ctx, gateway.Query{
		Table:   table,
		Columns: "*,products(*)",
		Filters: []gateway.Filter{gateway.Eq("user_id", user.ID)},
	}, &entries)
	if err != nil {
		return nil, fmt.Errorf("fetch wishlist: %w", err)
	}

	members := make(map[int64]gateway.Product, len(entries))
	products := make([]gateway.Product, 0, len(entries))
	for _, entry := range entries {
		if entry.Products == nil {
			continue
		}
		members[entry.Products.ID] = *entry.Products
		products = append(products, *entry.Products)
	}

	c.mu.Lock()
	c.members = members
	c.mu.Unlock()
	return products, nil
}

// Reset drops the cache, used on sign-out.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = map[int64]gateway.Product{}
}

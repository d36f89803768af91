// Package shop reads the storefront catalog, order history and profile
// through the gateway and drives checkout payment verification.
package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/betza/betza/internal/gateway"
)

// ErrNotAuthenticated is returned by profile operations without a user.
var ErrNotAuthenticated = errors.New("shop: not authenticated")

// Service performs catalog and order reads for the UI.
type Service struct {
	store gateway.Store
	user  func() *gateway.User
}

// New builds a Service. user reports the currently authenticated user, or
// nil; it scopes order reads.
func New(store gateway.Store, user func() *gateway.User) *Service {
	return &Service{store: store, user: user}
}

// Products returns the full catalog.
func (s *Service) Products(ctx context.Context) ([]gateway.Product, error) {
	var products []gateway.Product
	if err := s.store.Select(ctx, gateway.Query{Table: "products"}, &products); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return products, nil
}

// ProductByID returns one product, or gateway.ErrNoRows.
func (s *Service) ProductByID(ctx context.Context, id int64) (gateway.Product, error) {
	var product gateway.Product
	err := s.store.SelectSingle(ctx, gateway.Query{
		Table:   "products",
		Filters: []gateway.Filter{gateway.Eq("id", id)},
	}, &product)
	if err != nil {
		return gateway.Product{}, fmt.Errorf("fetch product %d: %w", id, err)
	}
	return product, nil
}

// Categories returns all categories.
func (s *Service) Categories(ctx context.Context) ([]gateway.Category, error) {
	var categories []gateway.Category
	if err := s.store.Select(ctx, gateway.Query{Table: "categories"}, &categories); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return categories, nil
}

// ProductsByCategory returns the products in one category.
func (s *Service) ProductsByCategory(ctx context.Context, categoryID int64) ([]gateway.Product, error) {
	var products []gateway.Product
	err := s.store.Select(ctx, gateway.Query{
		Table:   "products",
		Filters: []gateway.Filter{gateway.Eq("category_id", categoryID)},
	}, &products)
	if err != nil {
		return nil, fmt.Errorf("fetch category %d products: %w", categoryID, err)
	}
	return products, nil
}

// Search matches product names case-insensitively against the term.
func (s *Service) Search(ctx context.Context, term string) ([]gateway.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	var products []gateway.Product
	err := s.store.Select(ctx, gateway.Query{
		Table:   "products",
		Filters: []gateway.Filter{gateway.ILike("name", "*"+term+"*")},
	}, &products)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

const similarLimit = 6

// SimilarProducts returns other products from the same category.
func (s *Service) SimilarProducts(ctx context.Context, categoryID, excludeID int64) ([]gateway.Product, error) {
	var products []gateway.Product
	err := s.store.Select(ctx, gateway.Query{
		Table: "products",
		Filters: []gateway.Filter{
			gateway.Eq("category_id", categoryID),
			gateway.Neq("id", excludeID),
		},
		Limit: similarLimit,
	}, &products)
	if err != nil {
		return nil, fmt.Errorf("fetch similar products: %w", err)
	}
	return products, nil
}

// Orders returns the current user's orders, newest first, with line items
// and their products expanded. Without a user it returns nothing.
func (s *Service) Orders(ctx context.Context) ([]gateway.Order, error) {
	user := s.user()
	if user == nil {
		return nil, nil
	}
	var orders []gateway.Order
	err := s.store.Select(ctx, gateway.Query{
		Table:   "orders",
		Columns: "*,order_items(*,products(*))",
		Filters: []gateway.Filter{gateway.Eq("user_id", user.ID)},
		Order:   "created_at.desc",
	}, &orders)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	return orders, nil
}

// OrderByID returns one order with items and products expanded.
func (s *Service) OrderByID(ctx context.Context, id int64) (gateway.Order, error) {
	var order gateway.Order
	err := s.store.SelectSingle(ctx, gateway.Query{
		Table:   "orders",
		Columns: "*,order_items(*,products(*))",
		Filters: []gateway.Filter{gateway.Eq("id", id)},
	}, &order)
	if err != nil {
		return gateway.Order{}, fmt.Errorf("fetch order %d: %w", id, err)
	}
	return order, nil
}

// Profile returns the current user's profile row. A user whose row was
// never created gets a profile carrying just the identity, so the account
// screen renders either way.
func (s *Service) Profile(ctx context.Context) (gateway.Profile, error) {
	user := s.user()
	if user == nil {
		return gateway.Profile{}, ErrNotAuthenticated
	}
	var profile gateway.Profile
	err := s.store.SelectSingle(ctx, gateway.Query{
		Table:   "profiles",
		Filters: []gateway.Filter{gateway.Eq("id", user.ID)},
	}, &profile)
	if errors.Is(err, gateway.ErrNoRows) {
		return gateway.Profile{ID: user.ID, Email: user.Email}, nil
	}
	if err != nil {
		return gateway.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	if profile.Email == "" {
		profile.Email = user.Email
	}
	return profile, nil
}

// UpdateFullName writes the display name onto the current user's profile
// row.
func (s *Service) UpdateFullName(ctx context.Context, fullName string) error {
	user := s.user()
	if user == nil {
		return ErrNotAuthenticated
	}
	row := struct {
		FullName string `json:"full_name"`
	}{FullName: strings.TrimSpace(fullName)}
	if err := s.store.Update(ctx, "profiles", row, gateway.Eq("id", user.ID)); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// NewPaymentReference mints a unique reference to hand to the payment
// provider before redirecting to checkout.
func NewPaymentReference() string {
	return "betza-" + uuid.NewString()
}

// VerifyPayment asks the verify-payment function to confirm the payment
// reference and returns the created order's ID. The caller clears the cart
// only after this succeeds.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (int64, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return 0, fmt.Errorf("verify payment: reference is empty")
	}
	body := struct {
		Reference string `json:"reference"`
	}{Reference: reference}
	var out struct {
		OrderID int64 `json:"order_id"`
	}
	if err := s.store.Invoke(ctx, "verify-payment", body, &out); err != nil {
		return 0, fmt.Errorf("verify payment: %w", err)
	}
	return out.OrderID, nil
}

package gateway

import (
	"fmt"
	"time"
)

// Product mirrors a row of the products table.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Category    string  `json:"category"`
	CategoryID  int64   `json:"category_id"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Category mirrors a row of the categories table.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// WishlistEntry mirrors a row of the wishlist table. Products is populated
// when the query expands the product relationship.
type WishlistEntry struct {
	ID        int64    `json:"id,omitempty"`
	UserID    string   `json:"user_id"`
	ProductID int64    `json:"product_id"`
	Products  *Product `json:"products,omitempty"`
}

// Order mirrors a row of the orders table. Items is populated when the
// query expands order_items.
type Order struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"user_id"`
	Status    string      `json:"status"`
	Total     float64     `json:"total"`
	Reference string      `json:"reference,omitempty"`
	CreatedAt string      `json:"created_at"`
	Items     []OrderItem `json:"order_items,omitempty"`
}

// OrderItem mirrors a row of the order_items table.
type OrderItem struct {
	ID        int64    `json:"id"`
	OrderID   int64    `json:"order_id"`
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unit_price"`
	Products  *Product `json:"products,omitempty"`
}

// Profile mirrors a row of the profiles table.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// User describes the authenticated identity as reported by the auth API.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the token pair for an authenticated user.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	User         User      `json:"user"`
	ExpiresAt    time.Time `json:"-"`
}

// APIError is a non-2xx response decoded from the gateway.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("gateway: status %d", e.Status)
}

package shop

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/betza/betza/internal/gateway"
)

func testService(t *testing.T, handler http.Handler, userID string) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gateway.NewClient(server.URL, "anon")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	user := func() *gateway.User {
		if userID == "" {
			return nil
		}
		return &gateway.User{ID: userID}
	}
	return New(client, user)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOrders_ExpandsItemsAndScopesToUser(t *testing.T) {
	t.Parallel()

	var gotSelect, gotUserFilter string
	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/orders" {
			http.NotFound(w, r)
			return
		}
		gotSelect = r.URL.Query().Get("select")
		gotUserFilter = r.URL.Query().Get("user_id")
		_ = json.NewEncoder(w).Encode([]gateway.Order{{
			ID: 3, UserID: "user-1", Total: 99,
			Items: []gateway.OrderItem{{ProductID: 7, Quantity: 2, Products: &gateway.Product{ID: 7, Name: "Boots"}}},
		}})
	}), "user-1")

	orders, err := s.Orders(testContext(t))
	if err != nil {
		t.Fatalf("Orders returned error: %v", err)
	}
	if gotSelect != "*,order_items(*,products(*))" {
		t.Fatalf("select = %q, want nested expansion", gotSelect)
	}
	if gotUserFilter != "eq.user-1" {
		t.Fatalf("user_id filter = %q, want eq.user-1", gotUserFilter)
	}
	if len(orders) != 1 || len(orders[0].Items) != 1 || orders[0].Items[0].Products.Name != "Boots" {
		t.Fatalf("orders = %#v, want one order with expanded product", orders)
	}
}

func TestOrders_WithoutUserSkipsRequest(t *testing.T) {
	t.Parallel()

	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request issued without a user")
	}), "")

	orders, err := s.Orders(testContext(t))
	if err != nil || orders != nil {
		t.Fatalf("Orders = %#v, %v; want nil, nil without a user", orders, err)
	}
}

func TestSearch_EmptyTermSkipsRequest(t *testing.T) {
	t.Parallel()

	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request issued for empty search term")
	}), "")

	products, err := s.Search(testContext(t), "   ")
	if err != nil || products != nil {
		t.Fatalf("Search = %#v, %v; want nil, nil", products, err)
	}
}

func TestProductByID_NotFound(t *testing.T) {
	t.Parallel()

	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}), "")

	_, err := s.ProductByID(testContext(t), 99)
	if !errors.Is(err, gateway.ErrNoRows) {
		t.Fatalf("ProductByID error = %v, want ErrNoRows", err)
	}
}

func TestProfile_ScopesToUser(t *testing.T) {
	t.Parallel()

	var gotFilter string
	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/profiles" {
			http.NotFound(w, r)
			return
		}
		gotFilter = r.URL.Query().Get("id")
		_ = json.NewEncoder(w).Encode([]gateway.Profile{{ID: "user-1", FullName: "Ada Lovelace", Email: "a@b.c"}})
	}), "user-1")

	profile, err := s.Profile(testContext(t))
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if gotFilter != "eq.user-1" {
		t.Fatalf("id filter = %q, want eq.user-1", gotFilter)
	}
	if profile.FullName != "Ada Lovelace" {
		t.Fatalf("profile = %#v, want Ada Lovelace", profile)
	}
}

func TestProfile_MissingRowFallsBackToIdentity(t *testing.T) {
	t.Parallel()

	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}), "user-1")

	profile, err := s.Profile(testContext(t))
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if profile.ID != "user-1" || profile.FullName != "" {
		t.Fatalf("profile = %#v, want bare identity for user-1", profile)
	}
}

func TestProfile_WithoutUserSkipsRequest(t *testing.T) {
	t.Parallel()

	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request issued without a user")
	}), "")

	if _, err := s.Profile(testContext(t)); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Profile error = %v, want ErrNotAuthenticated", err)
	}
	if err := s.UpdateFullName(testContext(t), "Ada"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("UpdateFullName error = %v, want ErrNotAuthenticated", err)
	}
}

func TestUpdateFullName_PatchesProfileRow(t *testing.T) {
	t.Parallel()

	var gotMethod, gotFilter string
	var gotBody map[string]string
	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/profiles" {
			http.NotFound(w, r)
			return
		}
		gotMethod = r.Method
		gotFilter = r.URL.Query().Get("id")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}), "user-1")

	if err := s.UpdateFullName(testContext(t), "  Ada Lovelace  "); err != nil {
		t.Fatalf("UpdateFullName returned error: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("method = %q, want PATCH", gotMethod)
	}
	if gotFilter != "eq.user-1" {
		t.Fatalf("id filter = %q, want eq.user-1", gotFilter)
	}
	if gotBody["full_name"] != "Ada Lovelace" {
		t.Fatalf("body = %#v, want trimmed full_name", gotBody)
	}
}

func TestVerifyPayment_ReturnsOrderID(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string
	s := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/v1/verify-payment" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"order_id":17}`))
	}), "user-1")

	orderID, err := s.VerifyPayment(testContext(t), "ref-9")
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}
	if orderID != 17 {
		t.Fatalf("orderID = %d, want 17", orderID)
	}
	if gotBody["reference"] != "ref-9" {
		t.Fatalf("reference = %q, want ref-9", gotBody["reference"])
	}

	if _, err := s.VerifyPayment(testContext(t), "  "); err == nil {
		t.Fatalf("VerifyPayment accepted empty reference")
	}
}

func TestNewPaymentReference_UniqueAndPrefixed(t *testing.T) {
	a, b := NewPaymentReference(), NewPaymentReference()
	if !strings.HasPrefix(a, "betza-") {
		t.Fatalf("reference %q missing prefix", a)
	}
	if a == b {
		t.Fatalf("references not unique: %q", a)
	}
}

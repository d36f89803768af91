package wishlist

import (
	"context"
	"errors"
	"testing"

	"github.com/betza/betza/internal/gateway"
)

type fakeStore struct {
	selects   int
	inserts   int
	deletes   int
	rows      []gateway.WishlistEntry
	failWrite error
}

func (f *fakeStore) Select(_ context.Context, q gateway.Query, dest any) error {
	f.selects++
	entries := dest.(*[]gateway.WishlistEntry)
	*entries = append([]gateway.WishlistEntry(nil), f.rows...)
	return nil
}

func (f *fakeStore) SelectSingle(_ context.Context, q gateway.Query, dest any) error {
	f.selects++
	if len(f.rows) == 0 {
		return gateway.ErrNoRows
	}
	*dest.(*gateway.WishlistEntry) = f.rows[0]
	return nil
}

func (f *fakeStore) Insert(context.Context, string, any) error {
	f.inserts++
	return f.failWrite
}

func (f *fakeStore) Update(context.Context, string, any, ...gateway.Filter) error {
	return f.failWrite
}

func (f *fakeStore) Delete(context.Context, string, ...gateway.Filter) error {
	f.deletes++
	return f.failWrite
}

func (f *fakeStore) Invoke(context.Context, string, any, any) error { return nil }

func userFn(id string) func() *gateway.User {
	return func() *gateway.User {
		if id == "" {
			return nil
		}
		return &gateway.User{ID: id}
	}
}

var product = gateway.Product{ID: 5, Name: "Lamp", Price: 12}

func TestToggle_UnauthenticatedAbortsWithoutRemoteCall(t *testing.T) {
	store := &fakeStore{}
	c := New(store, userFn(""))

	_, err := c.Toggle(context.Background(), product)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Toggle error = %v, want ErrNotAuthenticated", err)
	}
	if store.inserts != 0 || store.deletes != 0 || store.selects != 0 {
		t.Fatalf("remote calls issued for unauthenticated toggle: %+v", store)
	}
	if c.Contains(product.ID) {
		t.Fatalf("membership flipped for unauthenticated toggle")
	}
}

func TestToggle_RoundTripRestoresMembership(t *testing.T) {
	store := &fakeStore{}
	c := New(store, userFn("user-1"))

	member, err := c.Toggle(context.Background(), product)
	if err != nil {
		t.Fatalf("first Toggle returned error: %v", err)
	}
	if !member || !c.Contains(product.ID) {
		t.Fatalf("membership = %v after add, want true", member)
	}
	if store.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", store.inserts)
	}

	member, err = c.Toggle(context.Background(), product)
	if err != nil {
		t.Fatalf("second Toggle returned error: %v", err)
	}
	if member || c.Contains(product.ID) {
		t.Fatalf("membership = %v after second toggle, want original false", member)
	}
	if store.deletes != 1 {
		t.Fatalf("deletes = %d, want 1", store.deletes)
	}
}

func TestToggle_RemoteFailureLeavesCacheUnchanged(t *testing.T) {
	store := &fakeStore{failWrite: errors.New("network down")}
	c := New(store, userFn("user-1"))

	if _, err := c.Toggle(context.Background(), product); err == nil {
		t.Fatalf("Toggle returned nil error with failing store")
	}
	if c.Contains(product.ID) {
		t.Fatalf("cache flipped despite remote insert failure")
	}

	// Same on the delete path: seed membership, then fail the delete.
	store.failWrite = nil
	if _, err := c.Toggle(context.Background(), product); err != nil {
		t.Fatalf("seeding Toggle returned error: %v", err)
	}
	store.failWrite = errors.New("network down")
	if _, err := c.Toggle(context.Background(), product); err == nil {
		t.Fatalf("Toggle returned nil error with failing store")
	}
	if !c.Contains(product.ID) {
		t.Fatalf("cache flipped despite remote delete failure")
	}
}

func TestCheckMembership_FalseWithoutUser(t *testing.T) {
	store := &fakeStore{rows: []gateway.WishlistEntry{{UserID: "u", ProductID: product.ID}}}
	c := New(store, userFn(""))

	member, err := c.CheckMembership(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("CheckMembership returned error: %v", err)
	}
	if member {
		t.Fatalf("membership = true without a user")
	}
	if store.selects != 0 {
		t.Fatalf("remote call issued without a user")
	}
}

func TestCheckMembership_QueriesRemote(t *testing.T) {
	store := &fakeStore{}
	c := New(store, userFn("user-1"))

	member, err := c.CheckMembership(context.Background(), product.ID)
	if err != nil || member {
		t.Fatalf("CheckMembership = %v, %v; want false, nil on no rows", member, err)
	}

	store.rows = []gateway.WishlistEntry{{UserID: "user-1", ProductID: product.ID}}
	member, err = c.CheckMembership(context.Background(), product.ID)
	if err != nil || !member {
		t.Fatalf("CheckMembership = %v, %v; want true, nil", member, err)
	}
}

func TestRefresh_ReplacesCacheAndReset(t *testing.T) {
	other := gateway.Product{ID: 9, Name: "Mug"}
	store := &fakeStore{rows: []gateway.WishlistEntry{
		{UserID: "user-1", ProductID: product.ID, Products: &product},
		{UserID: "user-1", ProductID: other.ID, Products: &other},
		{UserID: "user-1", ProductID: 11}, // no expansion, skipped
	}}
	c := New(store, userFn("user-1"))

	products, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if !c.Contains(product.ID) || !c.Contains(other.ID) {
		t.Fatalf("cache missing refreshed members")
	}

	c.Reset()
	if c.Contains(product.ID) {
		t.Fatalf("cache survived Reset")
	}
}

package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/session"
	"github.com/betza/betza/internal/shop"
	"github.com/betza/betza/internal/wishlist"
)

// Messages

// authChangedMsg arrives over the events channel whenever the session
// manager changes state, including background refresh failures.
type authChangedMsg struct {
	state session.State
}

// deepLinkMsg arrives over the events channel when the callback listener
// receives an OAuth redirect, or when the user pastes a callback URL.
type deepLinkMsg struct {
	url string
}

// toastExpiredMsg fires when a toast's TTL elapses. The generation lets
// the dismissal fall through harmlessly when a newer toast replaced it.
type toastExpiredMsg struct {
	gen uint64
}

type productsLoadedMsg struct {
	seq      int
	products []gateway.Product
	err      error
}

type categoriesLoadedMsg struct {
	seq        int
	categories []gateway.Category
	err        error
}

type similarLoadedMsg struct {
	seq      int
	products []gateway.Product
	err      error
}

type wishlistLoadedMsg struct {
	seq      int
	products []gateway.Product
	err      error
}

type membershipMsg struct {
	seq       int
	productID int64
	present   bool
}

type wishlistToggledMsg struct {
	productID int64
	added     bool
	err       error
}

type ordersLoadedMsg struct {
	seq    int
	orders []gateway.Order
	err    error
}

type orderLoadedMsg struct {
	seq   int
	order gateway.Order
	err   error
}

type checkoutDoneMsg struct {
	orderID int64
	err     error
}

type profileLoadedMsg struct {
	seq     int
	profile gateway.Profile
	err     error
}

type nameSavedMsg struct {
	name string
	err  error
}

type passwordChangedMsg struct {
	err error
}

// authResultMsg reports the outcome of a sign-in, sign-up, code exchange,
// or biometric resumption.
type authResultMsg struct {
	signUp bool
	err    error
}

type oauthStartedMsg struct {
	url string
	err error
}

type biometricChangedMsg struct {
	enabled bool
	err     error
}

type signedOutMsg struct {
	err error
}

// SessionChange wraps a session state change for delivery over
// Options.Events.
func SessionChange(state session.State) tea.Msg {
	return authChangedMsg{state: state}
}

// DeepLink wraps a delivered callback URL for Options.Events.
func DeepLink(rawURL string) tea.Msg {
	return deepLinkMsg{url: rawURL}
}

// Commands

// waitForEvent receives one message from the external events channel.
// The model re-arms it after every delivery.
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func loadProducts(ctx context.Context, svc *shop.Service, seq int, categoryID int64, term string) tea.Cmd {
	return func() tea.Msg {
		var (
			products []gateway.Product
			err      error
		)
		switch {
		case term != "":
			products, err = svc.Search(ctx, term)
		case categoryID != 0:
			products, err = svc.ProductsByCategory(ctx, categoryID)
		default:
			products, err = svc.Products(ctx)
		}
		return productsLoadedMsg{seq: seq, products: products, err: err}
	}
}

func loadCategories(ctx context.Context, svc *shop.Service, seq int) tea.Cmd {
	return func() tea.Msg {
		categories, err := svc.Categories(ctx)
		return categoriesLoadedMsg{seq: seq, categories: categories, err: err}
	}
}

func loadSimilar(ctx context.Context, svc *shop.Service, seq int, categoryID, excludeID int64) tea.Cmd {
	return func() tea.Msg {
		products, err := svc.SimilarProducts(ctx, categoryID, excludeID)
		return similarLoadedMsg{seq: seq, products: products, err: err}
	}
}

func loadWishlist(ctx context.Context, wl *wishlist.Coordinator, seq int) tea.Cmd {
	return func() tea.Msg {
		products, err := wl.Refresh(ctx)
		return wishlistLoadedMsg{seq: seq, products: products, err: err}
	}
}

func checkMembership(ctx context.Context, wl *wishlist.Coordinator, seq int, productID int64) tea.Cmd {
	return func() tea.Msg {
		present, err := wl.CheckMembership(ctx, productID)
		if err != nil {
			// Heart state falls back to absent; the toggle itself
			// still round-trips through the gateway.
			present = false
		}
		return membershipMsg{seq: seq, productID: productID, present: present}
	}
}

func toggleWishlist(ctx context.Context, wl *wishlist.Coordinator, product gateway.Product) tea.Cmd {
	return func() tea.Msg {
		added, err := wl.Toggle(ctx, product)
		return wishlistToggledMsg{productID: product.ID, added: added, err: err}
	}
}

func loadOrders(ctx context.Context, svc *shop.Service, seq int) tea.Cmd {
	return func() tea.Msg {
		orders, err := svc.Orders(ctx)
		return ordersLoadedMsg{seq: seq, orders: orders, err: err}
	}
}

func loadOrder(ctx context.Context, svc *shop.Service, seq int, id int64) tea.Cmd {
	return func() tea.Msg {
		order, err := svc.OrderByID(ctx, id)
		return orderLoadedMsg{seq: seq, order: order, err: err}
	}
}

func loadProfile(ctx context.Context, svc *shop.Service, seq int) tea.Cmd {
	return func() tea.Msg {
		profile, err := svc.Profile(ctx)
		return profileLoadedMsg{seq: seq, profile: profile, err: err}
	}
}

func saveFullName(ctx context.Context, svc *shop.Service, name string) tea.Cmd {
	return func() tea.Msg {
		return nameSavedMsg{name: name, err: svc.UpdateFullName(ctx, name)}
	}
}

func changePassword(ctx context.Context, mgr *session.Manager, password, confirm string) tea.Cmd {
	return func() tea.Msg {
		return passwordChangedMsg{err: mgr.ChangePassword(ctx, password, confirm)}
	}
}

func verifyPayment(ctx context.Context, svc *shop.Service, reference string) tea.Cmd {
	return func() tea.Msg {
		orderID, err := svc.VerifyPayment(ctx, reference)
		return checkoutDoneMsg{orderID: orderID, err: err}
	}
}

func signIn(ctx context.Context, mgr *session.Manager, email, password string) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{err: mgr.SignIn(ctx, email, password)}
	}
}

func signUp(ctx context.Context, mgr *session.Manager, email, password, confirm string) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{signUp: true, err: mgr.SignUp(ctx, email, password, confirm)}
	}
}

func beginOAuth(mgr *session.Manager, provider, redirectTo string) tea.Cmd {
	return func() tea.Msg {
		url, err := mgr.BeginOAuth(provider, redirectTo)
		return oauthStartedMsg{url: url, err: err}
	}
}

func exchangeCallback(ctx context.Context, mgr *session.Manager, rawURL string) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{err: mgr.HandleCallbackURL(ctx, rawURL)}
	}
}

func resumeWithBiometrics(ctx context.Context, mgr *session.Manager) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{err: mgr.ResumeWithBiometrics(ctx)}
	}
}

func setBiometric(mgr *session.Manager, enable bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if enable {
			err = mgr.EnableBiometricLogin()
		} else {
			err = mgr.DisableBiometricLogin()
		}
		return biometricChangedMsg{enabled: enable && err == nil, err: err}
	}
}

func signOut(ctx context.Context, mgr *session.Manager) tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg{err: mgr.SignOut(ctx)}
	}
}

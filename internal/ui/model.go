// Package ui provides the Bubble Tea terminal interface for Betza.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/betza/betza/internal/biometric"
	"github.com/betza/betza/internal/cart"
	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/prefs"
	"github.com/betza/betza/internal/session"
	"github.com/betza/betza/internal/shop"
	"github.com/betza/betza/internal/toast"
	"github.com/betza/betza/internal/wishlist"
)

// screen identifies the active screen.
type screen int

const (
	screenGetStarted screen = iota
	screenSignIn
	screenSignUp
	screenHome
	screenProduct
	screenCart
	screenWishlist
	screenOrders
	screenOrderDetail
	screenProfile
)

// Options configures the UI.
type Options struct {
	Context  context.Context
	Session  *session.Manager
	Shop     *shop.Service
	Cart     *cart.Cart
	Wishlist *wishlist.Coordinator
	Toasts   *toast.Channel

	// Events carries session changes and deep-link deliveries produced
	// outside the Bubble Tea loop.
	Events <-chan tea.Msg

	ThemeName     string
	PrefsPath     string // empty uses the default prefs path
	OAuthProvider string
	RedirectURL   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	session  *session.Manager
	shop     *shop.Service
	cart     *cart.Cart
	wishlist *wishlist.Coordinator
	toasts   *toast.Channel
	events   <-chan tea.Msg

	provider    string
	redirectURL string
	prefsPath   string

	theme  Theme
	styles Styles
	keys   keyMap

	width  int
	height int
	ready  bool

	screen  screen
	loading bool
	spin    spinner.Model

	// navSeq stamps every navigation that kicks off loads. Results
	// stamped before the latest navigation are dropped, so a slow
	// response can never populate a screen the user already left.
	navSeq int

	form     authForm
	oauthURL string

	home   homeState
	detail productState

	cartCursor int

	wish   wishState
	orders ordersState
	order  gateway.Order

	profile profileState
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(opts.ThemeName)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))

	initial := screenGetStarted
	if opts.Session != nil && opts.Session.State() == session.StateAuthenticated {
		initial = screenHome
	}

	m := Model{
		ctx:         ctx,
		session:     opts.Session,
		shop:        opts.Shop,
		cart:        opts.Cart,
		wishlist:    opts.Wishlist,
		toasts:      opts.Toasts,
		events:      opts.Events,
		provider:    opts.OAuthProvider,
		redirectURL: opts.RedirectURL,
		prefsPath:   prefsPath,
		theme:       theme,
		styles:      theme.Styles(),
		keys:        defaultKeyMap(),
		screen:      initial,
		spin:        sp,
	}
	m.form = newAuthForm()
	m.home = newHomeState()
	if opts.Session != nil {
		m.profile.biometric = opts.Session.BiometricEnabled()
	}
	if initial == screenHome {
		// Init runs on a copy of the model, so the sequence for the
		// startup loads has to be consumed here. The next navigation
		// then moves past it and the stale guard can drop a slow
		// startup response.
		m.navSeq = 1
		m.loading = true
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.EnterAltScreen, m.spin.Tick}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	if m.screen == screenHome {
		cmds = append(cmds, m.homeLoadCmds()...)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case authChangedMsg:
		return m.handleAuthChanged(msg)

	case deepLinkMsg:
		return m, tea.Batch(
			exchangeCallback(m.ctx, m.session, msg.url),
			waitForEvent(m.events),
		)

	case toastExpiredMsg:
		m.toasts.Dismiss(msg.gen)
		return m, nil

	case authResultMsg:
		return m.handleAuthResult(msg)

	case oauthStartedMsg:
		if msg.err != nil {
			return m, m.showToast(msg.err.Error(), toast.Error)
		}
		m.oauthURL = msg.url
		return m, m.showToast("Open the sign-in link in your browser", toast.Info)

	case productsLoadedMsg:
		if msg.seq < m.navSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m, m.showToast("Could not load products", toast.Error)
		}
		m.home.products = msg.products
		if m.home.cursor >= len(msg.products) {
			m.home.cursor = 0
		}
		return m, nil

	case categoriesLoadedMsg:
		if msg.seq < m.navSeq {
			return m, nil
		}
		if msg.err == nil {
			m.home.categories = msg.categories
		}
		return m, nil

	case similarLoadedMsg:
		if msg.seq < m.navSeq {
			return m, nil
		}
		if msg.err == nil {
			m.detail.similar = msg.products
		}
		return m, nil

	case membershipMsg:
		if msg.seq >= m.navSeq && msg.productID == m.detail.product.ID {
			m.detail.inWishlist = msg.present
		}
		return m, nil

	case wishlistLoadedMsg:
		if msg.seq < m.navSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m, m.showToast("Could not load wishlist", toast.Error)
		}
		m.wish.products = msg.products
		if m.wish.cursor >= len(msg.products) {
			m.wish.cursor = 0
		}
		return m, nil

	case wishlistToggledMsg:
		return m.handleWishlistToggled(msg)

	case ordersLoadedMsg:
		if msg.seq < m.navSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m, m.showToast("Could not load orders", toast.Error)
		}
		m.orders.orders = msg.orders
		if m.orders.cursor >= len(msg.orders) {
			m.orders.cursor = 0
		}
		return m, nil

	case orderLoadedMsg:
		if msg.seq < m.navSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m, m.showToast("Could not load order", toast.Error)
		}
		m.order = msg.order
		return m, nil

	case profileLoadedMsg:
		if msg.seq < m.navSeq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m, m.showToast("Could not load profile", toast.Error)
		}
		m.profile.profile = msg.profile
		return m, nil

	case nameSavedMsg:
		m.profile.busy = false
		if msg.err != nil {
			return m, m.showToast("Could not update name", toast.Error)
		}
		m.profile.profile.FullName = msg.name
		m.profile.editing = profileEditNone
		return m, m.showToast("Name updated", toast.Success)

	case passwordChangedMsg:
		m.profile.busy = false
		if msg.err != nil {
			return m, m.showToast(passwordErrorText(msg.err), toast.Error)
		}
		m.profile.editing = profileEditNone
		return m, m.showToast("Password changed", toast.Success)

	case checkoutDoneMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.showToast("Payment failed: "+msg.err.Error(), toast.Error)
		}
		m.cart.Clear()
		m.cartCursor = 0
		var cmds []tea.Cmd
		cmds = append(cmds, m.showToast(fmt.Sprintf("Order #%d placed", msg.orderID), toast.Success))
		next, nav := m.gotoOrders()
		return next, tea.Batch(append(cmds, nav)...)

	case biometricChangedMsg:
		if msg.err != nil {
			return m, m.showToast(biometricErrorText(msg.err), toast.Error)
		}
		m.profile.biometric = msg.enabled
		if msg.enabled {
			return m, m.showToast("Fingerprint sign-in enabled", toast.Success)
		}
		return m, m.showToast("Fingerprint sign-in disabled", toast.Info)

	case signedOutMsg:
		if msg.err != nil {
			return m, m.showToast("Sign-out incomplete: "+msg.err.Error(), toast.Error)
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if t, ok := m.toasts.Current(); ok && t.Position == toast.Top {
		b.WriteString(m.renderToast(t))
		b.WriteString("\n")
	}
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	if t, ok := m.toasts.Current(); ok && t.Position == toast.Bottom {
		b.WriteString(m.renderToast(t))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderContent() string {
	if m.loading {
		return m.spin.View() + " " + m.styles.MutedText.Render("Loading...")
	}
	switch m.screen {
	case screenGetStarted:
		return m.renderGetStarted()
	case screenSignIn, screenSignUp:
		return m.renderAuthForm()
	case screenHome:
		return m.renderHome()
	case screenProduct:
		return m.renderProduct()
	case screenCart:
		return m.renderCart()
	case screenWishlist:
		return m.renderWishlist()
	case screenOrders:
		return m.renderOrders()
	case screenOrderDetail:
		return m.renderOrderDetail()
	case screenProfile:
		return m.renderProfile()
	default:
		return ""
	}
}

// handleKey routes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Text entry screens consume most keys themselves.
	if m.typing() {
		return m.handleTypingKey(msg)
	}

	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// Section shortcuts apply once the user is past the auth screens.
	if m.screen >= screenHome {
		switch {
		case key.Matches(msg, m.keys.Cart):
			return m.gotoCart()
		case key.Matches(msg, m.keys.Wishlist):
			return m.gotoWishlist()
		case key.Matches(msg, m.keys.Orders):
			return m.gotoOrders()
		case key.Matches(msg, m.keys.Profile):
			return m.gotoProfile()
		}
	}

	switch m.screen {
	case screenGetStarted:
		return m.handleGetStartedKey(msg)
	case screenHome:
		return m.handleHomeKey(msg)
	case screenProduct:
		return m.handleProductKey(msg)
	case screenCart:
		return m.handleCartKey(msg)
	case screenWishlist:
		return m.handleWishlistKey(msg)
	case screenOrders:
		return m.handleOrdersKey(msg)
	case screenOrderDetail:
		return m.handleOrderDetailKey(msg)
	case screenProfile:
		return m.handleProfileKey(msg)
	}
	return m, nil
}

// typing reports whether a text input currently owns the keyboard.
func (m Model) typing() bool {
	switch m.screen {
	case screenSignIn, screenSignUp:
		return true
	case screenHome:
		return m.home.searching
	case screenProfile:
		return m.profile.editing != profileEditNone
	}
	return false
}

func (m Model) handleTypingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.screen {
	case screenSignIn, screenSignUp:
		return m.handleAuthFormKey(msg)
	case screenHome:
		return m.handleSearchKey(msg)
	case screenProfile:
		return m.handleProfileEditKey(msg)
	}
	return m, nil
}

func (m Model) handleAuthChanged(msg authChangedMsg) (tea.Model, tea.Cmd) {
	rearm := waitForEvent(m.events)
	switch msg.state {
	case session.StateAuthenticated:
		m.profile.biometric = m.session.BiometricEnabled()
		if m.screen == screenGetStarted || m.screen == screenSignIn || m.screen == screenSignUp {
			m.form = newAuthForm()
			m.oauthURL = ""
			next, nav := m.gotoHome()
			root := next.(Model)
			return root, tea.Batch(rearm, nav, root.showToast("Signed in", toast.Success))
		}
		return m, rearm
	case session.StateUnauthenticated:
		m.wishlist.Reset()
		m.wish = wishState{}
		m.orders = ordersState{}
		m.profile = profileState{}
		m.detail.inWishlist = false
		if m.screen != screenGetStarted && m.screen != screenSignIn && m.screen != screenSignUp {
			m.screen = screenGetStarted
			m.loading = false
			return m, tea.Batch(rearm, m.showToast("Signed out", toast.Info))
		}
		return m, rearm
	}
	return m, rearm
}

func (m Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.form.busy = false
	if msg.err != nil {
		text := authErrorText(msg.err)
		m.form.errText = text
		return m, m.showToast(text, toast.Error)
	}
	m.form.errText = ""
	if msg.signUp && m.session.State() != session.StateAuthenticated {
		// Signup succeeded but no session was issued, so the project
		// requires email confirmation first.
		return m, m.showToast("Check your email to confirm your account", toast.Info)
	}
	// Navigation happens on the session change notification.
	return m, nil
}

func (m Model) handleWishlistToggled(msg wishlistToggledMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, wishlist.ErrNotAuthenticated) {
			return m, m.showToast("Sign in to save items", toast.Error)
		}
		return m, m.showToast("Wishlist update failed", toast.Error)
	}
	if m.screen == screenProduct && m.detail.product.ID == msg.productID {
		m.detail.inWishlist = msg.added
	}
	if m.screen == screenWishlist {
		m.wish.products = m.wishlist.Products()
		if m.wish.cursor >= len(m.wish.products) && m.wish.cursor > 0 {
			m.wish.cursor--
		}
	}
	if msg.added {
		return m, m.showToast("Added to wishlist", toast.Success)
	}
	return m, m.showToast("Removed from wishlist", toast.Info)
}

// Navigation

func (m Model) gotoHome() (tea.Model, tea.Cmd) {
	m.screen = screenHome
	m.loading = true
	cmds := m.loadHome()
	return m, tea.Batch(cmds...)
}

func (m *Model) loadHome() []tea.Cmd {
	m.navSeq++
	return m.homeLoadCmds()
}

// homeLoadCmds stamps the catalog loads with the current sequence.
func (m Model) homeLoadCmds() []tea.Cmd {
	return []tea.Cmd{
		loadProducts(m.ctx, m.shop, m.navSeq, m.home.activeCategory, m.home.term),
		loadCategories(m.ctx, m.shop, m.navSeq),
	}
}

func (m Model) gotoProduct(p gateway.Product) (tea.Model, tea.Cmd) {
	m.screen = screenProduct
	m.navSeq++
	m.detail = productState{product: p, qty: 1}
	return m, tea.Batch(
		loadSimilar(m.ctx, m.shop, m.navSeq, p.CategoryID, p.ID),
		checkMembership(m.ctx, m.wishlist, m.navSeq, p.ID),
	)
}

func (m Model) gotoCart() (tea.Model, tea.Cmd) {
	m.screen = screenCart
	m.loading = false
	if m.cartCursor >= m.cart.Len() {
		m.cartCursor = 0
	}
	return m, nil
}

func (m Model) gotoWishlist() (tea.Model, tea.Cmd) {
	if m.session.State() != session.StateAuthenticated {
		return m, m.showToast("Sign in to see your wishlist", toast.Error)
	}
	m.screen = screenWishlist
	m.loading = true
	m.navSeq++
	return m, loadWishlist(m.ctx, m.wishlist, m.navSeq)
}

func (m Model) gotoOrders() (tea.Model, tea.Cmd) {
	if m.session.State() != session.StateAuthenticated {
		return m, m.showToast("Sign in to see your orders", toast.Error)
	}
	m.screen = screenOrders
	m.loading = true
	m.navSeq++
	return m, loadOrders(m.ctx, m.shop, m.navSeq)
}

func (m Model) gotoOrderDetail(id int64) (tea.Model, tea.Cmd) {
	m.screen = screenOrderDetail
	m.loading = true
	m.navSeq++
	return m, loadOrder(m.ctx, m.shop, m.navSeq, id)
}

func (m Model) gotoProfile() (tea.Model, tea.Cmd) {
	if m.session.State() != session.StateAuthenticated {
		return m, m.showToast("Sign in to see your profile", toast.Error)
	}
	m.screen = screenProfile
	m.loading = true
	m.navSeq++
	m.profile.biometric = m.session.BiometricEnabled()
	m.profile.editing = profileEditNone
	m.profile.busy = false
	return m, loadProfile(m.ctx, m.shop, m.navSeq)
}

// showToast publishes a toast and schedules its dismissal.
func (m Model) showToast(text string, severity toast.Severity) tea.Cmd {
	gen := m.toasts.Show(text, severity, toast.Top)
	ttl := m.toasts.TTL()
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return toastExpiredMsg{gen: gen}
	})
}

func (m Model) renderToast(t toast.Toast) string {
	style := m.styles.ToastStyle(t.Severity)
	return style.Render("  " + t.Message)
}

func (m Model) renderHeader() string {
	title := m.styles.AccentText.Render(" Betza ")
	right := ""
	if u := m.session.User(); u != nil {
		right = m.styles.MutedText.Render(u.Email + " ")
	}
	items := m.cart.TotalItems()
	cartBadge := ""
	if items > 0 {
		cartBadge = m.styles.InfoText.Render(fmt.Sprintf("cart:%d ", items))
	}
	return m.styles.Header.Render(title + " " + cartBadge + right)
}

func (m Model) renderFooter() string {
	var parts []string
	switch m.screen {
	case screenGetStarted:
		parts = []string{"enter sign in", "s sign up", "g google", "b fingerprint", "q quit"}
	case screenSignIn, screenSignUp:
		parts = []string{"tab next field", "enter submit", "esc back"}
	case screenHome:
		parts = []string{"enter open", "/ search", "←/→ category", "c cart", "w wishlist", "o orders", "p profile", "q quit"}
	case screenProduct:
		parts = []string{"+/- quantity", "enter add to cart", "f wishlist", "esc back"}
	case screenCart:
		parts = []string{"+/- quantity", "x remove", "enter checkout", "esc back"}
	case screenWishlist:
		parts = []string{"enter open", "f remove", "esc back"}
	case screenOrders:
		parts = []string{"enter open", "esc back"}
	case screenOrderDetail:
		parts = []string{"esc back"}
	case screenProfile:
		if m.profile.editing != profileEditNone {
			parts = []string{"tab next field", "enter save", "esc cancel"}
		} else {
			parts = []string{"e name", "P password", "b fingerprint", "T theme", "s sign out", "esc back"}
		}
	}
	return m.styles.Footer.Render(strings.Join(parts, "  "))
}

func authErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrMissingFields):
		return "Email and password are required"
	case errors.Is(err, session.ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, session.ErrBiometricDisabled):
		return "Fingerprint sign-in is not set up"
	case errors.Is(err, session.ErrRefreshRejected):
		return "Saved sign-in expired, use your password"
	case errors.Is(err, biometric.ErrNoHardware),
		errors.Is(err, biometric.ErrNotEnrolled),
		errors.Is(err, biometric.ErrPromptDenied),
		errors.Is(err, biometric.ErrPromptFailed):
		return biometricErrorText(err)
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Sign-in failed"
}

func passwordErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrMissingFields):
		return "Enter a new password"
	case errors.Is(err, session.ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Sign in first"
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Password change failed"
}

func biometricErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Sign in first"
	case errors.Is(err, biometric.ErrNoHardware):
		return "No fingerprint hardware on this device"
	case errors.Is(err, biometric.ErrNotEnrolled):
		return "No fingerprints enrolled on this device"
	case errors.Is(err, biometric.ErrPromptDenied):
		return "Fingerprint not recognized"
	case errors.Is(err, biometric.ErrPromptFailed):
		return "Fingerprint check failed"
	}
	return err.Error()
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

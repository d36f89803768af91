package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/biometric"
	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/keystore"
	"github.com/betza/betza/internal/session"
	"github.com/betza/betza/internal/toast"
)

// stubAuth reports a fixed signed-in user so New starts on the home screen.
type stubAuth struct{}

func (stubAuth) SignUp(context.Context, string, string) (*gateway.Session, error) {
	return nil, nil
}

func (stubAuth) SignInWithPassword(context.Context, string, string) (*gateway.Session, error) {
	return nil, nil
}

func (stubAuth) AuthorizeURL(string, string) (string, error) { return "", nil }

func (stubAuth) ExchangeCode(context.Context, string) (*gateway.Session, error) {
	return nil, nil
}

func (stubAuth) RefreshSession(context.Context, string) (*gateway.Session, error) {
	return nil, nil
}

func (stubAuth) CurrentUser(context.Context) (*gateway.User, error) {
	return &gateway.User{ID: "u1", Email: "u@example.com"}, nil
}

func (stubAuth) UpdatePassword(context.Context, string) error { return nil }

func (stubAuth) SignOut(context.Context) error { return nil }

func (stubAuth) Session() *gateway.Session { return nil }

func (stubAuth) OnAuthStateChange(func(*gateway.Session)) func() { return func() {} }

func signedInManager(t *testing.T) *session.Manager {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.New(stubAuth{}, &keystore.Memory{}, biometric.Unsupported{}, log)
	mgr.Start(context.Background())
	t.Cleanup(mgr.Close)
	return mgr
}

func TestGetTheme_FallsBackToDracula(t *testing.T) {
	if got := GetTheme("NoSuchTheme"); got.Name != "Dracula" {
		t.Fatalf("GetTheme = %q, want Dracula", got.Name)
	}
	if got := GetTheme("Slate"); got.Name != "Slate" {
		t.Fatalf("GetTheme = %q, want Slate", got.Name)
	}
}

func TestNextTheme_Cycles(t *testing.T) {
	seen := map[string]bool{}
	name := "Dracula"
	for range themeOrder {
		name = NextTheme(name)
		if seen[name] {
			t.Fatalf("NextTheme revisited %q before completing the cycle", name)
		}
		seen[name] = true
	}
	if name != "Dracula" {
		t.Fatalf("cycle ended at %q, want Dracula", name)
	}
	if got := NextTheme("NoSuchTheme"); got != themeOrder[0] {
		t.Fatalf("NextTheme(unknown) = %q, want %q", got, themeOrder[0])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q, want unchanged", got)
	}
	if got := truncate("a very long product name", 10); len([]rune(got)) != 10 {
		t.Fatalf("truncate = %q, want 10 runes", got)
	}
	if got := truncate("Göteborgs fåtöljmöbler", 10); got != "Göteborgs…" {
		t.Fatalf("truncate = %q, want rune-aligned cut", got)
	}
	if got := truncate("héllo", 5); got != "héllo" {
		t.Fatalf("truncate = %q, want unchanged at exact rune length", got)
	}
}

func TestUpdate_StaleProductLoadIsDropped(t *testing.T) {
	m := Model{toasts: &toast.Channel{}, navSeq: 2, loading: true}

	next, _ := m.Update(productsLoadedMsg{
		seq:      1,
		products: []gateway.Product{{ID: 1, Name: "stale"}},
	})
	got := next.(Model)
	if len(got.home.products) != 0 {
		t.Fatalf("stale load populated %d products", len(got.home.products))
	}
	if !got.loading {
		t.Fatalf("stale load cleared the loading state")
	}

	next, _ = got.Update(productsLoadedMsg{
		seq:      2,
		products: []gateway.Product{{ID: 2, Name: "fresh"}},
	})
	got = next.(Model)
	if len(got.home.products) != 1 || got.home.products[0].Name != "fresh" {
		t.Fatalf("current load not applied: %+v", got.home.products)
	}
	if got.loading {
		t.Fatalf("current load left the loading state set")
	}
}

func TestNew_ConsumesStartupLoadSequence(t *testing.T) {
	m := New(Options{Session: signedInManager(t), Toasts: &toast.Channel{}})
	if m.screen != screenHome {
		t.Fatalf("initial screen = %v, want home", m.screen)
	}
	if m.navSeq != 1 {
		t.Fatalf("navSeq = %d after New, want 1 so the startup loads are stamped current", m.navSeq)
	}
	if !m.loading {
		t.Fatalf("loading not set while the startup loads run")
	}
}

func TestUpdate_SlowStartupLoadCannotOverwriteReload(t *testing.T) {
	m := New(Options{Session: signedInManager(t), Toasts: &toast.Channel{}})

	// The startup response is held while the user reloads the catalog.
	held := productsLoadedMsg{seq: m.navSeq, products: []gateway.Product{{ID: 1, Name: "startup"}}}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = next.(Model)
	if m.navSeq != 2 {
		t.Fatalf("navSeq = %d after reload, want 2", m.navSeq)
	}

	next, _ = m.Update(productsLoadedMsg{seq: m.navSeq, products: []gateway.Product{{ID: 2, Name: "reload"}}})
	m = next.(Model)

	next, _ = m.Update(held)
	m = next.(Model)
	if len(m.home.products) != 1 || m.home.products[0].Name != "reload" {
		t.Fatalf("products = %+v, want the reload result to survive the held startup response", m.home.products)
	}
	if m.loading {
		t.Fatalf("held startup response re-set the loading state")
	}
}

func TestProfileNameEdit_OpensEditorAndAppliesSave(t *testing.T) {
	m := New(Options{Session: signedInManager(t), Toasts: &toast.Channel{}})
	m.screen = screenProfile
	m.loading = false

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	m = next.(Model)
	if m.profile.editing != profileEditName {
		t.Fatalf("editing = %v after e, want the name editor", m.profile.editing)
	}
	if !m.typing() {
		t.Fatalf("name editor does not own the keyboard")
	}

	next, _ = m.Update(nameSavedMsg{name: "Ada Lovelace"})
	m = next.(Model)
	if m.profile.profile.FullName != "Ada Lovelace" {
		t.Fatalf("full name = %q, want Ada Lovelace", m.profile.profile.FullName)
	}
	if m.profile.editing != profileEditNone || m.profile.busy {
		t.Fatalf("editor state survived a successful save")
	}
}

func TestPasswordErrorText_MapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{session.ErrMissingFields, "Enter a new password"},
		{session.ErrPasswordMismatch, "Passwords do not match"},
		{session.ErrNotAuthenticated, "Sign in first"},
		{&gateway.APIError{Status: 422, Message: "Password should be at least 6 characters"}, "Password should be at least 6 characters"},
		{errors.New("dial tcp: timeout"), "Password change failed"},
	}
	for _, tc := range cases {
		if got := passwordErrorText(tc.err); got != tc.want {
			t.Fatalf("passwordErrorText(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestUpdate_StaleToastExpiryKeepsNewerToast(t *testing.T) {
	toasts := &toast.Channel{}
	m := Model{toasts: toasts}

	first := toasts.Show("first", toast.Info, toast.Top)
	toasts.Show("second", toast.Success, toast.Top)

	next, _ := m.Update(toastExpiredMsg{gen: first})
	m = next.(Model)

	current, ok := toasts.Current()
	if !ok || current.Message != "second" {
		t.Fatalf("current toast = %+v (ok=%v), want second still live", current, ok)
	}
}

func TestAuthErrorText_MapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{session.ErrMissingFields, "Email and password are required"},
		{session.ErrPasswordMismatch, "Passwords do not match"},
		{session.ErrRefreshRejected, "Saved sign-in expired, use your password"},
		{&gateway.APIError{Status: 400, Message: "Invalid login credentials"}, "Invalid login credentials"},
		{errors.New("dial tcp: timeout"), "Sign-in failed"},
	}
	for _, tc := range cases {
		if got := authErrorText(tc.err); got != tc.want {
			t.Fatalf("authErrorText(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

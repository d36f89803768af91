package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/betza/betza/internal/biometric"
	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/keystore"
)

// fakeAuth scripts the gateway auth surface and records calls.
type fakeAuth struct {
	session     *gateway.Session
	currentUser *gateway.User
	userErr     error
	refreshed   *gateway.Session
	refreshErr  error
	exchangeErr error
	signOutErr  error

	exchangedCodes []string
	refreshedWith  []string
	signOuts       int
	passwords      []string
	passwordErr    error

	listener func(*gateway.Session)
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (*gateway.Session, error) {
	sess := &gateway.Session{AccessToken: "t", RefreshToken: "r", User: gateway.User{ID: "new", Email: email}}
	f.notify(sess)
	return sess, nil
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, _ string) (*gateway.Session, error) {
	sess := &gateway.Session{AccessToken: "t", RefreshToken: "r", User: gateway.User{ID: "pw", Email: email}}
	f.notify(sess)
	return sess, nil
}

func (f *fakeAuth) AuthorizeURL(provider, redirectTo string) (string, error) {
	return "https://gateway.example/authorize?provider=" + provider, nil
}

func (f *fakeAuth) ExchangeCode(_ context.Context, code string) (*gateway.Session, error) {
	f.exchangedCodes = append(f.exchangedCodes, code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	sess := &gateway.Session{AccessToken: "t", RefreshToken: "r", User: gateway.User{ID: "oauth"}}
	f.notify(sess)
	return sess, nil
}

func (f *fakeAuth) RefreshSession(_ context.Context, token string) (*gateway.Session, error) {
	f.refreshedWith = append(f.refreshedWith, token)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	sess := f.refreshed
	if sess == nil {
		sess = &gateway.Session{AccessToken: "t", RefreshToken: "rotated", User: gateway.User{ID: "bio"}}
	}
	f.notify(sess)
	return sess, nil
}

func (f *fakeAuth) CurrentUser(context.Context) (*gateway.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	if f.currentUser == nil {
		return nil, gateway.ErrNoUser
	}
	return f.currentUser, nil
}

func (f *fakeAuth) UpdatePassword(_ context.Context, password string) error {
	if f.passwordErr != nil {
		return f.passwordErr
	}
	f.passwords = append(f.passwords, password)
	return nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.signOuts++
	f.session = nil
	f.notify(nil)
	return f.signOutErr
}

func (f *fakeAuth) Session() *gateway.Session { return f.session }

func (f *fakeAuth) OnAuthStateChange(fn func(*gateway.Session)) func() {
	f.listener = fn
	return func() { f.listener = nil }
}

func (f *fakeAuth) notify(sess *gateway.Session) {
	f.session = sess
	if f.listener != nil {
		f.listener(sess)
	}
}

// fakeGate scripts the biometric check.
type fakeGate struct {
	available bool
	enrolled  bool
	promptErr error
	prompts   int
}

func (g *fakeGate) Available() bool { return g.available }
func (g *fakeGate) Enrolled() bool  { return g.enrolled }
func (g *fakeGate) Authenticate(context.Context, string) error {
	g.prompts++
	return g.promptErr
}

func newManager(auth *fakeAuth, keys keystore.Store, gate biometric.Gate) *Manager {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(auth, keys, gate, log)
}

func TestStart_ResolvesInitialState(t *testing.T) {
	cases := []struct {
		name string
		auth *fakeAuth
		want State
	}{
		{"existing user", &fakeAuth{session: &gateway.Session{AccessToken: "t"}, currentUser: &gateway.User{ID: "u"}}, StateAuthenticated},
		{"no user", &fakeAuth{}, StateUnauthenticated},
		{"check error treated as unauthenticated", &fakeAuth{userErr: errors.New("boom")}, StateUnauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newManager(tc.auth, &keystore.Memory{}, &fakeGate{})
			if got := m.State(); got != StateUnknown {
				t.Fatalf("state before Start = %v, want unknown", got)
			}
			m.Start(context.Background())
			if got := m.State(); got != tc.want {
				t.Fatalf("state = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthChangeNotification_ReentersAuthenticated(t *testing.T) {
	auth := &fakeAuth{}
	m := newManager(auth, &keystore.Memory{}, &fakeGate{})
	m.Start(context.Background())

	var transitions []State
	m.OnChange(func(s State) { transitions = append(transitions, s) })

	// A background refresh notifies with a session; no user action involved.
	auth.notify(&gateway.Session{AccessToken: "t", RefreshToken: "r2", User: gateway.User{ID: "u"}})
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v after session notification, want authenticated", m.State())
	}
	if m.User() == nil || m.User().ID != "u" {
		t.Fatalf("user = %#v, want u", m.User())
	}

	auth.notify(nil)
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %v after empty notification, want unauthenticated", m.State())
	}
	if len(transitions) != 2 {
		t.Fatalf("transitions = %v, want two", transitions)
	}
}

func TestHandleCallbackURL_ExchangesCode(t *testing.T) {
	auth := &fakeAuth{}
	m := newManager(auth, &keystore.Memory{}, &fakeGate{})
	m.Start(context.Background())

	err := m.HandleCallbackURL(context.Background(), "betza://auth/callback?code=abc123")
	if err != nil {
		t.Fatalf("HandleCallbackURL returned error: %v", err)
	}
	if len(auth.exchangedCodes) != 1 || auth.exchangedCodes[0] != "abc123" {
		t.Fatalf("exchanged codes = %v, want [abc123]", auth.exchangedCodes)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v after exchange, want authenticated", m.State())
	}
}

func TestHandleCallbackURL_IgnoresUnrelatedAndRejectsMissingCode(t *testing.T) {
	auth := &fakeAuth{}
	m := newManager(auth, &keystore.Memory{}, &fakeGate{})
	m.Start(context.Background())

	if err := m.HandleCallbackURL(context.Background(), "betza://products/4"); err != nil {
		t.Fatalf("unrelated url returned error: %v", err)
	}
	if len(auth.exchangedCodes) != 0 {
		t.Fatalf("unrelated url triggered an exchange")
	}

	if err := m.HandleCallbackURL(context.Background(), "betza://auth/callback"); err == nil {
		t.Fatalf("callback without code returned nil error")
	}
}

func TestHandleCallbackURL_DuplicateCodeFailsWithoutCrashing(t *testing.T) {
	auth := &fakeAuth{}
	m := newManager(auth, &keystore.Memory{}, &fakeGate{})
	m.Start(context.Background())

	if err := m.HandleCallbackURL(context.Background(), "betza://auth/callback?code=abc123"); err != nil {
		t.Fatalf("first delivery returned error: %v", err)
	}

	// The gateway rejects the reused code; the session must survive.
	auth.exchangeErr = &gateway.APIError{Status: 400, Message: "code already used"}
	if err := m.HandleCallbackURL(context.Background(), "betza://auth/callback?code=abc123"); err == nil {
		t.Fatalf("duplicate delivery returned nil error")
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v after rejected duplicate, want still authenticated", m.State())
	}
}

func TestSignIn_ValidatesBeforeRemoteCall(t *testing.T) {
	auth := &fakeAuth{}
	m := newManager(auth, &keystore.Memory{}, &fakeGate{})
	m.Start(context.Background())

	if err := m.SignIn(context.Background(), " ", "pw"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("SignIn error = %v, want ErrMissingFields", err)
	}
	if err := m.SignUp(context.Background(), "a@b.c", "one", "two"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("SignUp error = %v, want ErrPasswordMismatch", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state changed by rejected input")
	}

	if err := m.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v after sign-in, want authenticated", m.State())
	}
}

func TestChangePassword_ValidatesBeforeRemoteCall(t *testing.T) {
	auth := &fakeAuth{}
	m := newManager(auth, &keystore.Memory{}, &fakeGate{})
	m.Start(context.Background())

	if err := m.ChangePassword(context.Background(), "new", "new"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v while signed out, want ErrNotAuthenticated", err)
	}

	if err := m.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if err := m.ChangePassword(context.Background(), " ", " "); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("error = %v for blank password, want ErrMissingFields", err)
	}
	if err := m.ChangePassword(context.Background(), "one", "two"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("error = %v for mismatch, want ErrPasswordMismatch", err)
	}
	if len(auth.passwords) != 0 {
		t.Fatalf("rejected input reached the gateway: %v", auth.passwords)
	}

	if err := m.ChangePassword(context.Background(), "new-secret", "new-secret"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if len(auth.passwords) != 1 || auth.passwords[0] != "new-secret" {
		t.Fatalf("gateway received %v, want [new-secret]", auth.passwords)
	}
}

func TestResumeWithBiometrics_EachPreconditionFailsDistinguishably(t *testing.T) {
	enabledKeys := func(token string) *keystore.Memory {
		m := &keystore.Memory{}
		_ = m.Set(keystore.KeyBiometricEnabled, "true")
		if token != "" {
			_ = m.Set(keystore.KeyRefreshToken, token)
		}
		return m
	}

	cases := []struct {
		name    string
		keys    *keystore.Memory
		gate    *fakeGate
		auth    *fakeAuth
		wantErr error
	}{
		{"not enabled", &keystore.Memory{}, &fakeGate{available: true, enrolled: true}, &fakeAuth{}, ErrBiometricDisabled},
		{"no hardware", enabledKeys("tok"), &fakeGate{}, &fakeAuth{}, biometric.ErrNoHardware},
		{"not enrolled", enabledKeys("tok"), &fakeGate{available: true}, &fakeAuth{}, biometric.ErrNotEnrolled},
		{"prompt denied", enabledKeys("tok"), &fakeGate{available: true, enrolled: true, promptErr: biometric.ErrPromptDenied}, &fakeAuth{}, biometric.ErrPromptDenied},
		{"no stored token", enabledKeys(""), &fakeGate{available: true, enrolled: true}, &fakeAuth{}, ErrRefreshRejected},
		{"refresh rejected", enabledKeys("tok"), &fakeGate{available: true, enrolled: true}, &fakeAuth{refreshErr: errors.New("revoked")}, ErrRefreshRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newManager(tc.auth, tc.keys, tc.gate)
			m.Start(context.Background())

			err := m.ResumeWithBiometrics(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if m.State() != StateUnauthenticated {
				t.Fatalf("state = %v after failed resumption, want unauthenticated", m.State())
			}
		})
	}
}

func TestResumeWithBiometrics_SuccessStoresRotatedToken(t *testing.T) {
	keys := &keystore.Memory{}
	_ = keys.Set(keystore.KeyBiometricEnabled, "true")
	_ = keys.Set(keystore.KeyRefreshToken, "old-token")
	auth := &fakeAuth{}
	gate := &fakeGate{available: true, enrolled: true}

	m := newManager(auth, keys, gate)
	m.Start(context.Background())

	if err := m.ResumeWithBiometrics(context.Background()); err != nil {
		t.Fatalf("ResumeWithBiometrics returned error: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", m.State())
	}
	if gate.prompts != 1 {
		t.Fatalf("prompts = %d, want 1", gate.prompts)
	}
	if len(auth.refreshedWith) != 1 || auth.refreshedWith[0] != "old-token" {
		t.Fatalf("refreshed with %v, want [old-token]", auth.refreshedWith)
	}
	if tok, _ := keys.Get(keystore.KeyRefreshToken); tok != "rotated" {
		t.Fatalf("stored token = %q, want rotated", tok)
	}
}

func TestEnableBiometricLogin_RequiresLiveSessionAndHardware(t *testing.T) {
	keys := &keystore.Memory{}
	auth := &fakeAuth{}
	m := newManager(auth, keys, &fakeGate{available: true, enrolled: true})
	m.Start(context.Background())

	if err := m.EnableBiometricLogin(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}

	if err := m.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if err := m.EnableBiometricLogin(); err != nil {
		t.Fatalf("EnableBiometricLogin returned error: %v", err)
	}
	if !m.BiometricEnabled() {
		t.Fatalf("BiometricEnabled = false after enable")
	}
	if tok, _ := keys.Get(keystore.KeyRefreshToken); tok != "r" {
		t.Fatalf("stored token = %q, want r", tok)
	}

	if err := m.DisableBiometricLogin(); err != nil {
		t.Fatalf("DisableBiometricLogin returned error: %v", err)
	}
	if m.BiometricEnabled() {
		t.Fatalf("BiometricEnabled = true after disable")
	}
	if _, err := keys.Get(keystore.KeyRefreshToken); !errors.Is(err, keystore.ErrNotFound) {
		t.Fatalf("token survived disable: %v", err)
	}
}

func TestSignOut_AttemptsBothDeletionsEvenWhenOneFails(t *testing.T) {
	keys := &keystore.Memory{FailDelete: map[string]error{keystore.KeyBiometricEnabled: errors.New("locked")}}
	_ = keys.Set(keystore.KeyBiometricEnabled, "true")
	_ = keys.Set(keystore.KeyRefreshToken, "tok")
	auth := &fakeAuth{session: &gateway.Session{AccessToken: "t"}, currentUser: &gateway.User{ID: "u"}}

	m := newManager(auth, keys, &fakeGate{})
	m.Start(context.Background())
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v before sign-out, want authenticated", m.State())
	}

	if err := m.SignOut(context.Background()); err == nil {
		t.Fatalf("SignOut returned nil error despite failed deletion")
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("state = %v after sign-out, want unauthenticated", m.State())
	}
	if auth.signOuts != 1 {
		t.Fatalf("gateway sign-outs = %d, want 1", auth.signOuts)
	}
	// The token deletion must still have been attempted and succeeded.
	if _, err := keys.Get(keystore.KeyRefreshToken); !errors.Is(err, keystore.ErrNotFound) {
		t.Fatalf("refresh token not deleted: %v", err)
	}
}

func TestClose_ReleasesSubscriptionOnce(t *testing.T) {
	auth := &fakeAuth{}
	m := newManager(auth, &keystore.Memory{}, &fakeGate{})
	m.Start(context.Background())

	if auth.listener == nil {
		t.Fatalf("Start did not subscribe")
	}
	m.Close()
	m.Close()
	if auth.listener != nil {
		t.Fatalf("Close did not release the subscription")
	}
}

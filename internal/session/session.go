package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/betza/betza/internal/biometric"
	"github.com/betza/betza/internal/deeplink"
	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/keystore"
)

// State is the manager's projection of whether a user is signed in.
type State int

const (
	// StateUnknown is the initial state while the startup check runs.
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Sentinel errors for the sign-in resumption paths.
var (
	ErrMissingFields     = errors.New("session: email and password are required")
	ErrPasswordMismatch  = errors.New("session: passwords do not match")
	ErrBiometricDisabled = errors.New("session: biometric login is not enabled")
	ErrRefreshRejected   = errors.New("session: stored refresh token was rejected")
	ErrNotAuthenticated  = errors.New("session: not authenticated")
)

// Manager owns the authenticated/unauthenticated decision and every
// supported path to establish a session.
type Manager struct {
	auth gateway.Authenticator
	keys keystore.Store
	gate biometric.Gate
	log  *slog.Logger

	mu           sync.RWMutex
	state        State
	user         *gateway.User
	listeners    map[int]func(State)
	nextListener int

	closeOnce   sync.Once
	unsubscribe func()
}

// New builds a Manager. Call Start to subscribe to gateway session changes
// and run the startup check.
func New(auth gateway.Authenticator, keys keystore.Store, gate biometric.Gate, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		auth:      auth,
		keys:      keys,
		gate:      gate,
		log:       log,
		state:     StateUnknown,
		listeners: map[int]func(State){},
	}
}

// Start subscribes to gateway session-change notifications and resolves the
// initial state. Check failures are logged and treated as unauthenticated,
// never as fatal.
func (m *Manager) Start(ctx context.Context) {
	m.unsubscribe = m.auth.OnAuthStateChange(m.handleAuthChange)

	user, err := m.auth.CurrentUser(ctx)
	switch {
	case err == nil:
		m.setState(StateAuthenticated, user)
	case errors.Is(err, gateway.ErrNoUser):
		m.setState(StateUnauthenticated, nil)
	default:
		m.log.Warn("startup auth check failed", "error", err)
		m.setState(StateUnauthenticated, nil)
	}
}

// Close tears down the gateway subscription. Safe to call more than once;
// the subscription is released exactly once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
	})
}

func (m *Manager) handleAuthChange(sess *gateway.Session) {
	if sess == nil {
		m.setState(StateUnauthenticated, nil)
		return
	}
	user := sess.User
	m.setState(StateAuthenticated, &user)

	// The gateway rotates refresh tokens; keep the stored one current so
	// biometric resumption redeems a live token, not a revoked one.
	if sess.RefreshToken != "" && m.BiometricEnabled() {
		if err := m.keys.Set(keystore.KeyRefreshToken, sess.RefreshToken); err != nil {
			m.log.Warn("failed to rotate stored refresh token", "error", err)
		}
	}
}

func (m *Manager) setState(state State, user *gateway.User) {
	m.mu.Lock()
	changed := m.state != state
	m.state = state
	m.user = user
	fns := make([]func(State), 0, len(m.listeners))
	if changed {
		for _, fn := range m.listeners {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// State returns the current projection.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns the authenticated user, or nil.
func (m *Manager) User() *gateway.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	dup := *m.user
	return &dup
}

// OnChange registers fn for state transitions. The returned function
// removes the registration.
func (m *Manager) OnChange(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SignIn performs interactive email/password sign-in. Empty fields are
// rejected before any remote call.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return ErrMissingFields
	}
	if _, err := m.auth.SignInWithPassword(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// SignUp registers a new account. Validation failures are reported before
// any remote call.
func (m *Manager) SignUp(ctx context.Context, email, password, confirm string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return ErrMissingFields
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if _, err := m.auth.SignUp(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// ChangePassword sets a new password on the signed-in account. Validation
// failures are reported before any remote call.
func (m *Manager) ChangePassword(ctx context.Context, password, confirm string) error {
	if m.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(password) == "" {
		return ErrMissingFields
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return m.auth.UpdatePassword(ctx, password)
}

// BeginOAuth requests an authorization URL for the named provider. The
// caller hands the URL to an external browser; the redirect comes back
// through HandleCallbackURL.
func (m *Manager) BeginOAuth(provider, redirectTo string) (string, error) {
	return m.auth.AuthorizeURL(provider, redirectTo)
}

// HandleCallbackURL routes a platform-delivered URL. URLs whose path ends
// in the callback marker and carry a code are exchanged for a session;
// anything else is ignored with a nil error. Duplicate delivery of the
// same URL is safe: the gateway rejects a reused code and the state
// machine is left as it was.
func (m *Manager) HandleCallbackURL(ctx context.Context, rawURL string) error {
	code, isCallback := deeplink.ParseCallback(rawURL)
	if !isCallback {
		return nil
	}
	if code == "" {
		return fmt.Errorf("callback url carries no code")
	}
	return m.ExchangeCode(ctx, code)
}

// ExchangeCode redeems an OAuth authorization code for a session.
func (m *Manager) ExchangeCode(ctx context.Context, code string) error {
	if _, err := m.auth.ExchangeCode(ctx, code); err != nil {
		m.log.Warn("code exchange failed", "error", err)
		return err
	}
	return nil
}

// BiometricEnabled reports whether biometric login was previously enabled
// on this device.
func (m *Manager) BiometricEnabled() bool {
	value, err := m.keys.Get(keystore.KeyBiometricEnabled)
	return err == nil && value == "true"
}

// EnableBiometricLogin stores the current refresh token behind the device
// biometric. It requires an authenticated session holding a refresh token
// and usable biometric hardware.
func (m *Manager) EnableBiometricLogin() error {
	if m.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}
	sess := m.auth.Session()
	if sess == nil || sess.RefreshToken == "" {
		return ErrNotAuthenticated
	}
	if !m.gate.Available() {
		return biometric.ErrNoHardware
	}
	if !m.gate.Enrolled() {
		return biometric.ErrNotEnrolled
	}
	if err := m.keys.Set(keystore.KeyRefreshToken, sess.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if err := m.keys.Set(keystore.KeyBiometricEnabled, "true"); err != nil {
		// Keep the pair invariant: no flag, no token.
		_ = m.keys.Delete(keystore.KeyRefreshToken)
		return fmt.Errorf("store biometric flag: %w", err)
	}
	return nil
}

// DisableBiometricLogin deletes the flag and the stored token. Both
// deletions are attempted even if one fails.
func (m *Manager) DisableBiometricLogin() error {
	return m.wipeBiometricRecord()
}

func (m *Manager) wipeBiometricRecord() error {
	flagErr := m.keys.Delete(keystore.KeyBiometricEnabled)
	tokenErr := m.keys.Delete(keystore.KeyRefreshToken)
	if err := errors.Join(flagErr, tokenErr); err != nil {
		return fmt.Errorf("wipe biometric record: %w", err)
	}
	return nil
}

// ResumeWithBiometrics re-establishes a session from the stored refresh
// token, gated by the device biometric. Every precondition failure leaves
// the state unauthenticated and returns a distinguishable error.
func (m *Manager) ResumeWithBiometrics(ctx context.Context) error {
	if !m.BiometricEnabled() {
		return ErrBiometricDisabled
	}
	if !m.gate.Available() {
		return biometric.ErrNoHardware
	}
	if !m.gate.Enrolled() {
		return biometric.ErrNotEnrolled
	}
	if err := m.gate.Authenticate(ctx, "Sign in to Betza"); err != nil {
		return err
	}

	token, err := m.keys.Get(keystore.KeyRefreshToken)
	if err != nil {
		// Flag without token violates the record invariant; wipe the
		// half-record so the broken path is not offered again.
		_ = m.wipeBiometricRecord()
		return fmt.Errorf("%w: no stored token", ErrRefreshRejected)
	}

	sess, err := m.auth.RefreshSession(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}
	if sess.RefreshToken != "" {
		if err := m.keys.Set(keystore.KeyRefreshToken, sess.RefreshToken); err != nil {
			m.log.Warn("failed to store rotated refresh token", "error", err)
		}
	}
	return nil
}

// SignOut revokes the session, wipes the biometric record and transitions
// to unauthenticated. All cleanup is attempted regardless of individual
// failures; the first error is returned for reporting.
func (m *Manager) SignOut(ctx context.Context) error {
	signOutErr := m.auth.SignOut(ctx)
	wipeErr := m.wipeBiometricRecord()
	m.setState(StateUnauthenticated, nil)
	if signOutErr != nil {
		m.log.Warn("gateway sign-out failed", "error", signOutErr)
	}
	return errors.Join(signOutErr, wipeErr)
}

package gateway

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a new email/password user. Projects with confirmation
// disabled return a live session immediately.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	rel := &url.URL{Path: "/auth/v1/signup"}
	var sess Session
	if err := c.do(ctx, http.MethodPost, rel, credentials{Email: email, Password: password}, &sess); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return c.adoptSession(&sess)
}

// SignInWithPassword exchanges email/password credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.tokenGrant(ctx, "password", credentials{Email: email, Password: password})
}

// ExchangeCode redeems an OAuth authorization code delivered by the
// callback deep link. The gateway rejects a reused code, so duplicate
// delivery surfaces as an error rather than a second session.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Session, error) {
	c.mu.RLock()
	verifier := c.pkceVerifier
	c.mu.RUnlock()

	body := struct {
		AuthCode     string `json:"auth_code"`
		CodeVerifier string `json:"code_verifier"`
	}{AuthCode: code, CodeVerifier: verifier}
	return c.tokenGrant(ctx, "pkce", body)
}

// RefreshSession redeems a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("refresh session: refresh token is empty")
	}
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}
	return c.tokenGrant(ctx, "refresh_token", body)
}

func (c *Client) tokenGrant(ctx context.Context, grant string, body any) (*Session, error) {
	rel := &url.URL{Path: "/auth/v1/token", RawQuery: url.Values{"grant_type": {grant}}.Encode()}
	var sess Session
	if err := c.do(ctx, http.MethodPost, rel, body, &sess); err != nil {
		return nil, fmt.Errorf("%s grant: %w", grant, err)
	}
	return c.adoptSession(&sess)
}

func (c *Client) adoptSession(sess *Session) (*Session, error) {
	if sess.AccessToken == "" {
		// Sign-up with email confirmation pending returns no tokens.
		return sess, nil
	}
	resolveExpiry(sess)
	c.setSession(sess)
	dup := *sess
	return &dup, nil
}

// AuthorizeURL builds the external identity provider authorization URL and
// arms a fresh PKCE verifier for the subsequent ExchangeCode call.
func (c *Client) AuthorizeURL(provider, redirectTo string) (string, error) {
	if strings.TrimSpace(provider) == "" {
		return "", fmt.Errorf("provider is required")
	}
	verifier, challenge, err := newPKCEPair()
	if err != nil {
		return "", fmt.Errorf("generate pkce verifier: %w", err)
	}
	c.mu.Lock()
	c.pkceVerifier = verifier
	c.mu.Unlock()

	values := url.Values{
		"provider":              {provider},
		"code_challenge":        {challenge},
		"code_challenge_method": {"s256"},
	}
	if strings.TrimSpace(redirectTo) != "" {
		values.Set("redirect_to", redirectTo)
	}
	rel := &url.URL{Path: "/auth/v1/authorize", RawQuery: values.Encode()}
	return c.baseURL.ResolveReference(rel).String(), nil
}

// CurrentUser asks the gateway who the held session belongs to. Without a
// session it returns ErrNoUser and issues no request.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if c.Session() == nil {
		return nil, ErrNoUser
	}
	rel := &url.URL{Path: "/auth/v1/user"}
	var user User
	if err := c.do(ctx, http.MethodGet, rel, nil, &user); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrNoUser
	}
	return &user, nil
}

// UpdatePassword sets a new password on the authenticated user's account.
// Without a session it returns ErrNoUser and issues no request.
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	if c.Session() == nil {
		return ErrNoUser
	}
	body := struct {
		Password string `json:"password"`
	}{Password: password}
	rel := &url.URL{Path: "/auth/v1/user"}
	if err := c.do(ctx, http.MethodPut, rel, body, nil); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SignOut revokes the session at the gateway and drops it locally. The
// local session is cleared even when the revoke call fails.
func (c *Client) SignOut(ctx context.Context) error {
	rel := &url.URL{Path: "/auth/v1/logout"}
	err := c.do(ctx, http.MethodPost, rel, nil, nil)
	c.setSession(nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func newPKCEPair() (verifier, challenge string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

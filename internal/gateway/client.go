package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Store defines the table, auth and function operations the app consumes.
// This interface is implemented by *Client and can be used for testing.
type Store interface {
	Select(ctx context.Context, q Query, dest any) error
	SelectSingle(ctx context.Context, q Query, dest any) error
	Insert(ctx context.Context, table string, row any) error
	Update(ctx context.Context, table string, row any, filters ...Filter) error
	Delete(ctx context.Context, table string, filters ...Filter) error
	Invoke(ctx context.Context, fn string, body, dest any) error
}

// Authenticator defines the auth operations the session manager consumes.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	AuthorizeURL(provider, redirectTo string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	CurrentUser(ctx context.Context) (*User, error)
	UpdatePassword(ctx context.Context, password string) error
	SignOut(ctx context.Context) error
	Session() *Session
	OnAuthStateChange(fn func(*Session)) (unsubscribe func())
}

// Ensure Client satisfies both contracts at compile time.
var (
	_ Store         = (*Client)(nil)
	_ Authenticator = (*Client)(nil)
)

// ErrNoRows is returned by SelectSingle when no row matches.
var ErrNoRows = errors.New("gateway: no rows")

// ErrNoUser is returned by CurrentUser when no session is held.
var ErrNoUser = errors.New("gateway: no authenticated user")

// Client talks to the hosted backend's REST, auth and functions APIs.
type Client struct {
	baseURL   *url.URL
	anonKey   string
	http      *http.Client
	userAgent string

	mu           sync.RWMutex
	session      *Session
	listeners    map[int]func(*Session)
	nextListener int
	pkceVerifier string
}

const (
	defaultUserAgent = "betza/0.1"
	requestTimeout   = 10 * time.Second
)

// NewClient builds a Client for the given project URL and anon key.
func NewClient(projectURL, anonKey string) (*Client, error) {
	base, err := parseBaseURL(projectURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, fmt.Errorf("anon key is required")
	}
	return &Client{
		baseURL: base,
		anonKey: anonKey,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		listeners: map[int]func(*Session){},
	}, nil
}

// Session returns the currently held session, or nil.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	dup := *c.session
	return &dup
}

// OnAuthStateChange registers fn to be called with the current session (or
// nil) after every sign-in, token refresh and sign-out. The returned
// function removes the registration and must be called exactly once.
func (c *Client) OnAuthStateChange(fn func(*Session)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// setSession stores the session and notifies listeners outside the lock.
func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	fns := make([]func(*Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		var dup *Session
		if s != nil {
			d := *s
			dup = &d
		}
		fn(dup)
	}
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

// StartAutoRefresh launches a goroutine that renews the session shortly
// before the access token expires. It returns immediately and stops when
// ctx is cancelled.
func (c *Client) StartAutoRefresh(ctx context.Context, onError func(error)) {
	go func() {
		for {
			wait := c.refreshWait()
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			sess := c.Session()
			if sess == nil || sess.RefreshToken == "" {
				continue
			}
			if _, err := c.RefreshSession(ctx, sess.RefreshToken); err != nil {
				if onError != nil && ctx.Err() == nil {
					onError(err)
				}
			}
		}
	}()
}

const (
	refreshMargin    = 30 * time.Second
	refreshIdleCheck = 15 * time.Second
)

func (c *Client) refreshWait() time.Duration {
	sess := c.Session()
	if sess == nil || sess.ExpiresAt.IsZero() {
		return refreshIdleCheck
	}
	wait := time.Until(sess.ExpiresAt) - refreshMargin
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

// resolveExpiry fills Session.ExpiresAt from the access token's exp claim,
// falling back to expires_in relative to now.
func resolveExpiry(s *Session) {
	if s == nil {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.ExpiresAt = exp.Time
		}
		if s.User.ID == "" {
			if sub, err := claims.GetSubject(); err == nil {
				s.User.ID = sub
			}
		}
	}
	if s.ExpiresAt.IsZero() && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.accessToken())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Code             any    `json:"code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch code := payload.Code.(type) {
		case string:
			apiErr.Code = code
		case float64:
			apiErr.Code = fmt.Sprintf("%d", int(code))
		}
		switch {
		case payload.Msg != "":
			apiErr.Message = payload.Msg
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.ErrorDescription != "":
			apiErr.Message = payload.ErrorDescription
		}
	}
	return apiErr
}

func parseBaseURL(projectURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(projectURL)
	if trimmed == "" {
		return nil, fmt.Errorf("gateway url is required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url %q: %w", projectURL, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

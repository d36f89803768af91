// Package deeplink receives auth-callback URLs on a loopback listener.
// Terminal apps cannot register a custom URL scheme the way mobile apps
// do, so the OAuth redirect targets http://127.0.0.1:<port>/auth/callback
// and the browser delivers the authorization code here.
package deeplink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CallbackPath is the recognized auth-callback marker.
const CallbackPath = "/auth/callback"

// Handler consumes a delivered callback URL.
type Handler func(ctx context.Context, rawURL string)

// Listener serves the callback path and forwards matching URLs.
type Listener struct {
	addr    string
	handler Handler
	log     *slog.Logger
	server  *http.Server
}

// NewListener builds a Listener bound to addr (host:port on loopback).
func NewListener(addr string, handler Handler, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{addr: addr, handler: handler, log: log}
}

// Start begins serving in a background goroutine. It returns once the
// listener is bound so the OAuth flow can safely redirect to it.
func (l *Listener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("bind callback listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		raw := (&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery}).String()
		if ExtractCode(raw) == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}
		l.handler(ctx, raw)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body><p>Signed in. You can return to the app.</p></body></html>")
	})

	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Warn("callback listener stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.server.Shutdown(shutdownCtx)
	}()
	return nil
}

// ParseCallback reports whether rawURL is an auth callback and, if so, the
// authorization code it carries. Both custom-scheme deep links
// (betza://auth/callback?code=x) and loopback URLs are accepted, so a
// pasted redirect URL works too.
func ParseCallback(rawURL string) (code string, isCallback bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	path := "/" + strings.Trim(parsed.Path, "/")
	if parsed.Host == "auth" {
		// Custom schemes parse the first segment as the host.
		path = "/auth" + path
	}
	if !strings.HasSuffix(path, CallbackPath) {
		return "", false
	}
	return parsed.Query().Get("code"), true
}

// ExtractCode returns the authorization code carried by a callback URL, or
// empty when the URL is not a callback or has no code.
func ExtractCode(rawURL string) string {
	code, _ := ParseCallback(rawURL)
	return code
}

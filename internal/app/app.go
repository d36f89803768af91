package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/biometric"
	"github.com/betza/betza/internal/cart"
	"github.com/betza/betza/internal/config"
	"github.com/betza/betza/internal/deeplink"
	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/keystore"
	"github.com/betza/betza/internal/logging"
	"github.com/betza/betza/internal/prefs"
	"github.com/betza/betza/internal/session"
	"github.com/betza/betza/internal/shop"
	"github.com/betza/betza/internal/toast"
	"github.com/betza/betza/internal/ui"
	"github.com/betza/betza/internal/wishlist"
)

// Options configure the Betza application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/betza/prefs.toml
	Theme      string // empty uses the saved preference
}

// Run boots the Betza TUI until the context is cancelled or the user
// exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logFile, err := logging.OpenFile(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	ctx = logging.IntoContext(ctx, log)

	client, err := gateway.NewClient(cfg.GatewayURL, cfg.AnonKey)
	if err != nil {
		return fmt.Errorf("init gateway client: %w", err)
	}
	client.StartAutoRefresh(ctx, func(err error) {
		log.Warn("session refresh failed", "error", err)
	})

	keys := &keystore.Keyring{}
	gate := platformGate()

	mgr := session.New(client, keys, gate, log)
	mgr.Start(ctx)
	defer mgr.Close()

	// Events produced outside the UI loop are bridged over this channel.
	events := make(chan tea.Msg, 8)
	unsubscribe := mgr.OnChange(func(state session.State) {
		events <- ui.SessionChange(state)
	})
	defer unsubscribe()

	listener := deeplink.NewListener(cfg.CallbackAddr, func(_ context.Context, rawURL string) {
		events <- ui.DeepLink(rawURL)
	}, log)
	if err := listener.Start(ctx); err != nil {
		// The callback listener only matters for the OAuth flow;
		// password and biometric sign-in still work without it.
		log.Warn("callback listener unavailable", "error", err)
	}

	currentUser := func() *gateway.User { return mgr.User() }
	basket := &cart.Cart{}
	saved := wishlist.New(client, currentUser)
	store := shop.New(client, currentUser)
	toasts := &toast.Channel{}

	userPrefs := prefs.Load(opts.PrefsPath)
	theme := userPrefs.Theme
	if opts.Theme != "" {
		theme = opts.Theme
	}

	log.Info("starting", "gateway", cfg.GatewayURL, "provider", cfg.OAuthProvider)

	return ui.Run(ui.Options{
		Context:       ctx,
		Session:       mgr,
		Shop:          store,
		Cart:          basket,
		Wishlist:      saved,
		Toasts:        toasts,
		Events:        events,
		ThemeName:     theme,
		PrefsPath:     opts.PrefsPath,
		OAuthProvider: cfg.OAuthProvider,
		RedirectURL:   cfg.RedirectURL(),
	})
}

// platformGate picks the biometric gate for this platform. Terminals have
// no biometric hardware, so the unsupported gate is used everywhere.
func platformGate() biometric.Gate {
	return biometric.Unsupported{}
}

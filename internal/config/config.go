package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything the storefront client needs at startup.
type Config struct {
	GatewayURL    string // project URL of the hosted backend
	AnonKey       string // public API key
	OAuthProvider string // external identity provider name
	CallbackAddr  string // loopback listen address for the auth callback
	LogPath       string
	LogLevel      string
}

const (
	defaultConfigPath   = "~/.config/betza/config.toml"
	defaultLogPath      = "~/.local/share/betza/betza.log"
	defaultCallbackAddr = "127.0.0.1:8973"
	defaultProvider     = "google"

	envGatewayURL = "BETZA_GATEWAY_URL"
	envAnonKey    = "BETZA_ANON_KEY"
)

// Load locates and parses the config file, fills defaults, and lets
// environment variables (optionally from a .env file) override the gateway
// credentials. A missing config file is not an error; a missing gateway
// URL or anon key after all sources is.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		CallbackAddr:  defaultCallbackAddr,
		OAuthProvider: defaultProvider,
		LogPath:       mustExpand(defaultLogPath),
		LogLevel:      "info",
	}

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fall through to environment-only configuration.
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer func() { _ = file.Close() }()
		raw, err := parse(file)
		if err != nil {
			return Config{}, err
		}
		apply(&cfg.GatewayURL, raw.GatewayURL)
		apply(&cfg.AnonKey, raw.AnonKey)
		apply(&cfg.OAuthProvider, raw.OAuthProvider)
		apply(&cfg.CallbackAddr, raw.CallbackAddr)
		apply(&cfg.LogLevel, raw.LogLevel)
		if logPath := strings.TrimSpace(raw.LogPath); logPath != "" {
			cfg.LogPath = mustExpand(logPath)
		}
	}

	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()
	apply(&cfg.GatewayURL, os.Getenv(envGatewayURL))
	apply(&cfg.AnonKey, os.Getenv(envAnonKey))

	if cfg.GatewayURL == "" {
		return Config{}, fmt.Errorf("gateway_url is not set (config file or %s)", envGatewayURL)
	}
	if cfg.AnonKey == "" {
		return Config{}, fmt.Errorf("anon_key is not set (config file or %s)", envAnonKey)
	}
	return cfg, nil
}

type rawConfig struct {
	GatewayURL    string `toml:"gateway_url"`
	AnonKey       string `toml:"anon_key"`
	OAuthProvider string `toml:"oauth_provider"`
	CallbackAddr  string `toml:"callback_addr"`
	LogPath       string `toml:"log_path"`
	LogLevel      string `toml:"log_level"`
}

func parse(r io.Reader) (rawConfig, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return rawConfig{}, fmt.Errorf("read config: %w", err)
	}
	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return rawConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// RedirectURL is the OAuth redirect target served by the loopback
// callback listener.
func (c Config) RedirectURL() string {
	return "http://" + c.CallbackAddr + "/auth/callback"
}

func apply(dest *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dest = trimmed
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

// Package config handles loading and parsing the Betza client configuration.
//
// # Overview
//
// This package reads a TOML configuration file to discover the hosted
// backend's project URL and anon key, plus a handful of client-side knobs
// (OAuth provider, callback listen address, log file). The gateway
// credentials can also come from the environment, which keeps secrets out of
// dotfiles on shared machines.
//
// # Resolution Order
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/betza/config.toml (default)
//  3. If the config file doesn't exist, continue with defaults
//  4. Load .env (if present) and let BETZA_GATEWAY_URL / BETZA_ANON_KEY
//     override whatever the file provided
//  5. Fail only when no source produced a gateway URL and anon key
//
// # Default Values
//
//   - Config file: ~/.config/betza/config.toml
//   - Callback listener: 127.0.0.1:8973
//   - OAuth provider: google
//   - Log file: ~/.local/share/betza/betza.log
//
// # TOML Format
//
// Example config.toml:
//
//	gateway_url = "https://myproject.supabase.co"
//	anon_key = "eyJ..."
//	oauth_provider = "google"
//	callback_addr = "127.0.0.1:8973"
//	log_path = "~/.local/share/betza/betza.log"
//
// # Path Expansion
//
// Paths support tilde expansion ("~/...") and are resolved to absolute
// paths. Whitespace around values is trimmed; empty values fall back to
// defaults.
package config

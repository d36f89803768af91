// Package app provides the orchestration layer for the Betza application.
//
// # Overview
//
// This package wires together configuration, the gateway client, secure
// storage, the session manager, and the UI to create the complete Betza
// storefront experience. It serves as the composition root where all
// dependencies are initialized and connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load configuration from ~/.config/betza/config.toml and the environment
//  2. Open the structured log file (the TUI owns stdout)
//  3. Initialize the gateway client and start background token refresh
//  4. Build the session manager on the OS keyring and biometric gate
//  5. Start the loopback auth-callback listener for the OAuth flow
//  6. Start the TUI and block until user exits or context cancels
//
// # Event Flow
//
// Session state changes and delivered callback URLs originate outside the
// UI loop: the gateway notifies the session manager from its refresh
// goroutine, and the callback listener serves browser redirects. Both are
// bridged into the UI over a buffered channel so the single-threaded UI
// model observes them as ordinary messages.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Missing gateway URL or anon key after all config sources
//   - Unusable log file path
//   - Invalid gateway URL
//
// Recoverable errors (logged, app continues):
//   - Callback listener bind failure (OAuth unavailable, passwords work)
//   - Background session refresh failures
package app

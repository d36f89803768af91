// Package gateway provides the HTTP client for the hosted backend.
//
// # Overview
//
// The backend exposes three API surfaces under one project URL: row-based
// table access (/rest/v1), authentication (/auth/v1) and server-side
// functions (/functions/v1). This package wraps all three behind typed Go
// methods so the rest of the app never builds URLs or headers itself.
//
// # Row access
//
// Reads are described by a Query: table name, select clause (supporting
// nested relationship expansion such as "*,order_items(*,products(*))"),
// equality/pattern filters, ordering and a limit. Writes are Insert,
// Update and Delete; Update and Delete refuse to run without at least one
// filter.
//
//	var products []gateway.Product
//	err := client.Select(ctx, gateway.Query{Table: "products"}, &products)
//
// # Authentication
//
// Supported paths: email/password sign-up and sign-in, OAuth authorize-URL
// issuance with a PKCE challenge, authorization-code exchange, refresh-token
// redemption, current-user lookup, password change, and sign-out. Every transition notifies
// subscribers registered with OnAuthStateChange, mirroring how background
// refreshes can re-authenticate without user action. StartAutoRefresh keeps
// the session alive by renewing it shortly before the access token expires;
// the expiry is read from the token's exp claim, falling back to the
// reported expires_in.
//
// # Errors
//
// Request plumbing failures are wrapped with fmt.Errorf and %w. Non-2xx
// responses decode into *APIError carrying the HTTP status and the
// gateway's code/message. SelectSingle returns ErrNoRows when nothing
// matches; CurrentUser returns ErrNoUser when no session is held.
//
// # Thread safety
//
// Client is safe for concurrent use. The held session and listener set are
// mutex-guarded; Session returns a copy.
package gateway

// Package session owns the decision of whether the user is signed in.
//
// # State machine
//
// The manager starts Unknown, resolves to Authenticated or Unauthenticated
// on the startup check, and afterwards follows gateway session-change
// notifications: a notification carrying a session re-enters Authenticated
// (this covers background token refreshes), one carrying none drops to
// Unauthenticated.
//
// # Sign-in paths
//
// Three resumption paths are supported alongside interactive email/password
// sign-in and sign-up:
//
//   - Deep-link OAuth: BeginOAuth issues an authorization URL for an
//     external browser; the redirect lands in HandleCallbackURL, which
//     extracts the code and exchanges it for a session.
//   - Biometric: ResumeWithBiometrics redeems a refresh token stored in the
//     device keyring, gated by hardware presence, enrollment and a local
//     prompt. Each precondition failure returns a distinguishable error.
//   - Email/password: SignIn validates inputs before any remote call.
//
// # Failure semantics
//
// Every operation is fire-and-report: errors are returned for the caller to
// surface (toast or alert) and the manager always lands in a determinate
// state. Nothing here panics or leaves the state machine mid-transition.
//
// The biometric record (enabled flag plus refresh token) is kept paired:
// enabling stores both or neither, disabling and sign-out delete both, and
// token rotation keeps the stored token current while enabled.
package session

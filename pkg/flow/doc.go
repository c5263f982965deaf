// Package flow is the authentication journey orchestrator: a single-owner
// state machine that takes a user from an entered identifier through account
// resolution, credential or token verification, an optional second-factor
// challenge, and account sync to a terminal state.
//
// # Overview
//
// A Flow owns one authentication attempt end to end:
//   - Email and username identifiers, with reserved-name and availability routing
//   - Hosted-service and self-hosted password sign-in
//   - Second-factor codes over authenticator app, SMS and backup codes
//   - Passwordless magic links, resumable across process restarts
//   - Third-party (social) identity tokens, with account-connection fallback
//   - Cancellation and restart with stale-response protection
//
// All network effects go through the facade interfaces in facades.go;
// pkg/devfacade carries an in-memory implementation for tests and the demo
// server. Observers receive a Transition on every state change and must not
// call back into the flow from the callback.
//
// # Concurrency
//
// A Flow is safe for concurrent use. At most one facade call is in flight at
// a time: operations submitted while busy are ignored, and responses that
// arrive after Cancel or Restart are discarded rather than applied.
package flow

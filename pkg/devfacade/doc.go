// Package devfacade is an in-memory implementation of the network facades
// the authentication flow depends on. It verifies passwords with bcrypt,
// validates authenticator codes with TOTP, issues JWT sessions, and delivers
// magic links and one-time codes through the notification manager.
//
// It exists for tests and the demo server. Nothing in it talks to a real
// WordPress endpoint.
package devfacade

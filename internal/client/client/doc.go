// Package client contains the client-side adapters that talk to the FitIQ
// backend and bootstrap local storage.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     authentication, the user profile, metric and mood entries, meal logs
//     and a liveness probe.
//  2. A REST implementation (see HTTPClient) that injects the bearer token
//     through an http.RoundTripper, transparently refreshes an expired
//     access token once, rate-limits outbound calls and maps HTTP statuses to
//     sentinel errors.
//  3. Local persistence bootstrap (InitDatabase) wiring an SQLite database
//     and applying the embedded goose migrations.
//
// # Error Handling
//
// Server rejections surface as *APIError values that unwrap to one of the
// sentinels ErrValidation, ErrUnauthorized, ErrNotFound, ErrMethodNotAllowed,
// ErrConflict or ErrUnavailable. Transport failures and timeouts unwrap to
// ErrUnavailable.
//
// HTTPClient is safe for concurrent use. All operations honor context
// cancellation.
package client

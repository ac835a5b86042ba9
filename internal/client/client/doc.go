// Package client is the remote side of the portal's user sync.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) for the user
//     endpoints: GET /users/me, GET /users?external_id=..&limit=1 and
//     POST /users/upsert, plus a liveness Ping.
//  2. An HTTP/JSON implementation (see HTTPClient) whose transport attaches
//     a bearer token and, when a 401 body names an invalid token, refreshes
//     the credential and replays the request exactly once. Any other 401 is
//     returned as is.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring the
//     SQLite database and its embedded goose migrations.
//
// # Error Handling
//
// Non-success answers come back as *APIError carrying the server's
// message; APIError unwraps to ErrUnauthorized, ErrNotFound or
// ErrUnavailable so callers can match with errors.Is.
package client

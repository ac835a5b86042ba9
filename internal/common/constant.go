// Package common contains shared constants and sentinel errors used across
// portal client components.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// InvalidTokenCode is the error code the API puts in a 401 body when the
	// presented access token is no longer accepted and must be refreshed.
	InvalidTokenCode = "invalid_token"
)

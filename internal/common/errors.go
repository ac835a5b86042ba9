// Package common defines shared constants and sentinel errors used across
// the portal client packages. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Auth errors (invalid or malformed token).
	ErrInvalidToken  = errors.New("invalid token")
	ErrNoCredentials = errors.New("no credentials")

	// Sync error taxonomy. Resolution and fetch failures never leave the
	// engine; validation and write failures are reported to the caller.
	ErrResolution = errors.New("identity resolution failed")
	ErrFetch      = errors.New("fetch failed")
	ErrValidation = errors.New("validation failed")
	ErrWrite      = errors.New("write failed")
	ErrRecordGone = errors.New("record no longer exists")

	// ErrSessionEnded is returned for writes issued after teardown.
	ErrSessionEnded = errors.New("session ended")
)

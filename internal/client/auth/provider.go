// Package auth adapts the external identity provider to what the portal
// client needs from it: a bearer credential that can be force-refreshed,
// the provider subject of the signed-in user and sign-out.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Provider is the identity provider as seen by the sync engine and the
// teardown protocol.
type Provider interface {
	// Token returns the bearer credential. With force=true the cached
	// credential must be discarded and a fresh one obtained.
	Token(ctx context.Context, force bool) (string, error)
	// ExternalID returns the provider subject of the signed-in user.
	ExternalID(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// Claims are the token claims the client reads. Verification flags are
// optional and default to false.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Phone         string `json:"phone_number,omitempty"`
	PhoneVerified bool   `json:"phone_number_verified,omitempty"`
}

// Flags are the auth-derived values the client keeps in its local store
// between runs.
func (c Claims) Flags() map[string]string {
	return map[string]string{
		"email_verified": boolString(c.EmailVerified),
		"phone_verified": boolString(c.PhoneVerified),
		"auth_subject":   c.Subject,
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

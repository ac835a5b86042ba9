package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/coachportal/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// RefreshFunc obtains a new access token.
type RefreshFunc func(ctx context.Context) (string, error)

// StaticProvider serves a token handed to the client directly, e.g. pasted
// at the login prompt. The signature is not checked here; the API does
// that. Forced refresh works only when a RefreshFunc is set.
type StaticProvider struct {
	mu      sync.Mutex
	token   string
	refresh RefreshFunc
}

func NewStaticProvider(token string, refresh RefreshFunc) *StaticProvider {
	return &StaticProvider{token: token, refresh: refresh}
}

func (p *StaticProvider) Token(ctx context.Context, force bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !force {
		if p.token == "" {
			return "", common.ErrNoCredentials
		}
		return p.token, nil
	}

	if p.refresh == nil {
		return "", fmt.Errorf("%w: token cannot be refreshed", common.ErrNoCredentials)
	}
	t, err := p.refresh(ctx)
	if err != nil {
		return "", err
	}
	p.token = t
	return t, nil
}

func (p *StaticProvider) ExternalID(ctx context.Context) (string, error) {
	c, err := p.Claims()
	if err != nil {
		return "", err
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", common.ErrInvalidToken)
	}
	return c.Subject, nil
}

// Claims decodes the current token without verifying it.
func (p *StaticProvider) Claims() (Claims, error) {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token == "" {
		return Claims{}, common.ErrNoCredentials
	}
	return ParseUnverified(token)
}

func (p *StaticProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
	return nil
}

// ParseUnverified reads the claims of a JWT without checking its signature.
func ParseUnverified(token string) (Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return c, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/dmitrijs2005/coachportal/internal/common"
	"golang.org/x/oauth2"
)

// OIDCProvider wraps an OpenID Connect issuer. It refreshes the access
// token through the issuer's token endpoint, takes the external id from
// the verified id_token and signs out through the end-session endpoint
// when the issuer advertises one.
type OIDCProvider struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	conf     oauth2.Config

	endSession string

	mu  sync.Mutex
	tok *oauth2.Token
}

// NewOIDCProvider discovers issuer and starts from tok, typically restored
// from the local auth database.
func NewOIDCProvider(ctx context.Context, issuer, clientID string, tok *oauth2.Token) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	var meta struct {
		EndSession string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}

	return &OIDCProvider{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		conf: oauth2.Config{
			ClientID: clientID,
			Endpoint: provider.Endpoint(),
			Scopes:   []string{oidc.ScopeOpenID, "profile", "email"},
		},
		endSession: meta.EndSession,
		tok:        tok,
	}, nil
}

func (p *OIDCProvider) Token(ctx context.Context, force bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tok == nil {
		return "", common.ErrNoCredentials
	}
	if !force && p.tok.Valid() {
		return p.tok.AccessToken, nil
	}
	if p.tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token", common.ErrNoCredentials)
	}

	// An empty access token makes the source go to the token endpoint.
	src := p.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: p.tok.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	p.tok = tok
	return tok.AccessToken, nil
}

// Current returns the token held right now, or nil when signed out.
func (p *OIDCProvider) Current() *oauth2.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tok
}

func (p *OIDCProvider) idToken(ctx context.Context) (*oidc.IDToken, string, error) {
	tok := p.Current()
	if tok == nil {
		return nil, "", common.ErrNoCredentials
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, "", errNoIDToken
	}
	id, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return id, raw, nil
}

var errNoIDToken = errors.New("no id_token")

func (p *OIDCProvider) ExternalID(ctx context.Context) (string, error) {
	id, _, err := p.idToken(ctx)
	if err == nil {
		return id.Subject, nil
	}
	if !errors.Is(err, errNoIDToken) {
		return "", err
	}

	info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(p.Current()))
	if err != nil {
		return "", fmt.Errorf("userinfo: %w", err)
	}
	return info.Subject, nil
}

// Claims returns the verified id_token claims.
func (p *OIDCProvider) Claims(ctx context.Context) (Claims, error) {
	id, _, err := p.idToken(ctx)
	if err != nil {
		return Claims{}, err
	}
	var c Claims
	if err := id.Claims(&c); err != nil {
		return Claims{}, err
	}
	return c, nil
}

// SignOut drops the held tokens and, if the issuer has an end-session
// endpoint, tells it about it.
func (p *OIDCProvider) SignOut(ctx context.Context) error {
	_, raw, _ := p.idToken(ctx)

	p.mu.Lock()
	p.tok = nil
	p.mu.Unlock()

	if p.endSession == "" {
		return nil
	}

	u, err := url.Parse(p.endSession)
	if err != nil {
		return fmt.Errorf("end session endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client_id", p.conf.ClientID)
	if raw != "" {
		q.Set("id_token_hint", raw)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("end session: status %d", resp.StatusCode)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coachportal/internal/client/auth"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coachportal/internal/common"
	"golang.org/x/oauth2"
)

// getSecret is an indirection used to facilitate testing.
var getSecret = GetSecret

// newOIDCProvider is a test seam for auth.NewOIDCProvider.
var newOIDCProvider = func(ctx context.Context, issuer, clientID string, tok *oauth2.Token) (oidcProvider, error) {
	return auth.NewOIDCProvider(ctx, issuer, clientID, tok)
}

type oidcProvider interface {
	auth.Provider
	Current() *oauth2.Token
	Claims(ctx context.Context) (auth.Claims, error)
}

var errAlreadyLoggedIn = errors.New("already logged in, use logout first")

// Login signs in with an OIDC refresh token when an issuer is configured
// and with a pasted access token otherwise, stores the session and loads
// the profile.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, errAlreadyLoggedIn)
		return errAlreadyLoggedIn
	}

	p, sess, claims, err := a.signIn(ctx)
	if err != nil {
		a.log.Warn(ctx, "login unsuccessful", "error", err)
		fmt.Fprintln(a.out, "Login failed:", err)
		return err
	}
	return a.begin(ctx, p, sess, claims)
}

func (a *App) signIn(ctx context.Context) (auth.Provider, metadata.Session, auth.Claims, error) {
	if a.config.OIDCIssuer != "" {
		rt, err := getSecret("Refresh token", a.out)
		if err != nil {
			return nil, metadata.Session{}, auth.Claims{}, err
		}
		return a.oidcSignIn(ctx, &oauth2.Token{RefreshToken: rt}, true)
	}

	token := a.config.AccessToken
	if token == "" {
		t, err := getSecret("Access token", a.out)
		if err != nil {
			return nil, metadata.Session{}, auth.Claims{}, err
		}
		token = t
	}
	return staticSignIn(token)
}

func staticSignIn(token string) (auth.Provider, metadata.Session, auth.Claims, error) {
	p := auth.NewStaticProvider(token, nil)
	claims, err := p.Claims()
	if err != nil {
		return nil, metadata.Session{}, auth.Claims{}, err
	}
	if claims.Subject == "" {
		return nil, metadata.Session{}, auth.Claims{}, fmt.Errorf("%w: token has no subject", common.ErrInvalidToken)
	}
	return p, metadata.Session{Subject: claims.Subject, AccessToken: token}, claims, nil
}

// oidcSignIn discovers the issuer and, when refresh is set, trades the
// refresh token for fresh tokens before reading the id_token claims.
func (a *App) oidcSignIn(ctx context.Context, tok *oauth2.Token, refresh bool) (auth.Provider, metadata.Session, auth.Claims, error) {
	p, err := newOIDCProvider(ctx, a.config.OIDCIssuer, a.config.OIDCClientID, tok)
	if err != nil {
		return nil, metadata.Session{}, auth.Claims{}, err
	}
	if refresh {
		if _, err := p.Token(ctx, true); err != nil {
			return nil, metadata.Session{}, auth.Claims{}, err
		}
	}

	claims, err := p.Claims(ctx)
	if err != nil {
		sub, idErr := p.ExternalID(ctx)
		if idErr != nil {
			return nil, metadata.Session{}, auth.Claims{}, idErr
		}
		claims.Subject = sub
	}

	cur := p.Current()
	sess := metadata.Session{Subject: claims.Subject, AccessToken: cur.AccessToken, RefreshToken: cur.RefreshToken}
	if raw, ok := cur.Extra("id_token").(string); ok {
		sess.IDToken = raw
	}
	return p, sess, claims, nil
}

func (a *App) begin(ctx context.Context, p auth.Provider, sess metadata.Session, claims auth.Claims) error {
	if err := a.sessions.SignIn(ctx, sess, claims); err != nil {
		a.log.Error(ctx, "storing session failed", "error", err)
		return err
	}

	a.mu.Lock()
	a.provider = p
	a.mu.Unlock()

	s := a.startSession(ctx, claims.Subject)
	a.log.Info(ctx, "login successful", "user", claims.Subject)
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", claims.Subject, s.eng.State().Phase)
	return nil
}

// Restore resumes the session stored by the last login, if any. It
// reports whether a session was resumed.
func (a *App) Restore(ctx context.Context) bool {
	stored, err := a.sessions.Restore(ctx)
	if err != nil {
		a.log.Warn(ctx, "reading stored session failed", "error", err)
		return false
	}
	if stored.AccessToken == "" && stored.RefreshToken == "" {
		return false
	}

	var p auth.Provider
	if a.config.OIDCIssuer != "" {
		tok := &oauth2.Token{AccessToken: stored.AccessToken, RefreshToken: stored.RefreshToken}
		if stored.IDToken != "" {
			tok = tok.WithExtra(map[string]any{"id_token": stored.IDToken})
		}
		p, err = newOIDCProvider(ctx, a.config.OIDCIssuer, a.config.OIDCClientID, tok)
		if err != nil {
			a.log.Warn(ctx, "restoring session failed", "error", err)
			return false
		}
	} else {
		p = auth.NewStaticProvider(stored.AccessToken, nil)
	}

	subject := stored.Subject
	if subject == "" {
		if subject, err = p.ExternalID(ctx); err != nil {
			a.log.Warn(ctx, "restoring session failed", "error", err)
			return false
		}
	}

	a.mu.Lock()
	a.provider = p
	a.mu.Unlock()

	a.startSession(ctx, subject)
	a.log.Info(ctx, "session restored", "user", subject)
	return true
}

// Logout runs the full sign-out: engine state, local stores, auth
// database, service caches and the identity provider.
func (a *App) Logout(ctx context.Context) error {
	s := a.current()
	if s == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err := s.eng.Logout(ctx); err != nil {
		a.log.Warn(ctx, "logout finished with errors", "error", err)
	}
	a.closeRetired()
	return nil
}

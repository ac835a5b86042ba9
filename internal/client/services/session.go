// Package services contains application services used by the portal CLI.
// This file defines the session service: persisting the signed-in
// session, restoring it on start and probing the API.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/coachportal/internal/client/auth"
	"github.com/dmitrijs2005/coachportal/internal/client/client"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/kv"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coachportal/internal/dbx"
)

// SessionService manages the locally persisted sign-in.
//
//   - SignIn replaces any stored session with s and records the auth
//     flags derived from claims in the local store.
//   - Restore returns what SignIn stored, or an empty Session.
//   - Ping checks API liveness.
type SessionService interface {
	SignIn(ctx context.Context, s metadata.Session, claims auth.Claims) error
	Restore(ctx context.Context) (metadata.Session, error)
	Ping(ctx context.Context) error
}

type sessionService struct {
	api   client.Client
	db    *sql.DB
	local kv.Store
}

// NewSessionService binds the service to the API client, the auth
// database and the local persistent store.
func NewSessionService(api client.Client, db *sql.DB, local kv.Store) SessionService {
	return &sessionService{api: api, db: db, local: local}
}

func (s *sessionService) SignIn(ctx context.Context, sess metadata.Session, claims auth.Claims) error {
	if sess.Subject == "" {
		sess.Subject = claims.Subject
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return metadata.SaveSession(ctx, repo, sess)
	})
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	for k, v := range claims.Flags() {
		if err := s.local.Set(ctx, k, v); err != nil {
			return fmt.Errorf("sign in: store %s: %w", k, err)
		}
	}
	return nil
}

func (s *sessionService) Restore(ctx context.Context) (metadata.Session, error) {
	return metadata.LoadSession(ctx, metadata.NewSQLiteRepository(s.db))
}

func (s *sessionService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx)
}

// Package teardown purges every trace of a user session from the client:
// cached snapshots, session storage, persisted auth data, service caches
// and the identity provider session, then sends the user to login.
package teardown

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coachportal/internal/client/cachestore"
	"github.com/dmitrijs2005/coachportal/internal/client/metrics"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/kv"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/coachportal/internal/filex"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"go.uber.org/multierr"
)

// Reason tags the redirect so the login screen can tell a normal logout
// from a vanished account.
type Reason string

const (
	ReasonLogout         Reason = "logout"
	ReasonAccountDeleted Reason = "account_deleted"
)

const DefaultLoginPath = "/login"

// LocalPrefixes are the local store keys that belong to a session.
var LocalPrefixes = []string{
	cachestore.UserPrefix,
	cachestore.AvatarPrefix,
	"phone_verified",
	"email_verified",
	"auth_",
}

// SignOuter ends the session at the identity provider.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// Navigator moves the user to target once everything is purged.
type Navigator interface {
	Redirect(ctx context.Context, target string, reason Reason) error
}

// Protocol lists the backends to purge. Nil members are skipped.
type Protocol struct {
	Local         kv.Store
	Session       kv.Store
	AuthDB        metadata.Repository
	AuthDBFiles   []string
	ServiceCaches []kv.Store
	Identity      SignOuter
	Navigator     Navigator
	LoginPath     string
	Log           logging.Logger
}

// Run executes every step regardless of earlier failures and returns all
// step errors combined.
func (p *Protocol) Run(ctx context.Context, reason Reason) error {
	log := p.Log
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("reason", string(reason))
	metrics.Teardowns.WithLabelValues(string(reason)).Inc()

	var errs error
	step := func(name string, fn func(context.Context) error) {
		if err := guard(ctx, fn); err != nil {
			metrics.TeardownStepFailures.WithLabelValues(name).Inc()
			log.Warn(ctx, "teardown step failed", "step", name, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	step("local_cache", func(ctx context.Context) error {
		if p.Local == nil {
			return nil
		}
		return kv.DeletePrefixes(ctx, p.Local, LocalPrefixes...)
	})
	step("session_storage", func(ctx context.Context) error {
		if p.Session == nil {
			return nil
		}
		return p.Session.Clear(ctx)
	})
	step("auth_db", func(ctx context.Context) error {
		var err error
		if p.AuthDB != nil {
			err = p.AuthDB.Clear(ctx)
		}
		return multierr.Append(err, filex.RemoveFiles(p.AuthDBFiles...))
	})
	step("service_caches", func(ctx context.Context) error {
		var err error
		for _, c := range p.ServiceCaches {
			err = multierr.Append(err, guard(ctx, c.Clear))
		}
		return err
	})
	step("sign_out", func(ctx context.Context) error {
		if p.Identity == nil {
			return nil
		}
		return p.Identity.SignOut(ctx)
	})
	step("redirect", func(ctx context.Context) error {
		if p.Navigator == nil {
			return nil
		}
		target := p.LoginPath
		if target == "" {
			target = DefaultLoginPath
		}
		return p.Navigator.Redirect(ctx, target, reason)
	})

	log.Info(ctx, "session torn down", "failed_steps", len(multierr.Errors(errs)))
	return errs
}

// guard turns a panic inside fn into an error.
func guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/engine"
	"github.com/dmitrijs2005/coachportal/internal/client/profile"
	"go.uber.org/multierr"
)

// session is one signed-in user: its sync engine and profile form. A
// torn-down engine is never reused; the next login builds a new session.
type session struct {
	externalID string
	eng        *engine.Engine
	form       *profile.Pipeline
}

func (a *App) engineOptions() engine.Options {
	opts := engine.DefaultOptions()
	if a.config.SubscribeDelay > 0 {
		opts.SubscribeDelay = a.config.SubscribeDelay
	}
	if a.config.RefreshInterval > 0 {
		opts.RefreshInterval = a.config.RefreshInterval
	}
	log := a.log
	opts.OnPhase = func(from, to engine.Phase) {
		log.Debug(context.Background(), "sync phase", "from", string(from), "to", string(to))
	}
	return opts
}

// startSession builds an engine for externalID and runs its initial load.
func (a *App) startSession(ctx context.Context, externalID string) *session {
	a.closeRetired()

	eng := engine.New(a.api, a.resolver, a.cache, a.listener, a.protocol(), a.log.With("user", externalID), a.engineOptions())
	s := &session{
		externalID: externalID,
		eng:        eng,
		form:       profile.New(eng, a.log),
	}

	a.mu.Lock()
	a.cur = s
	a.mu.Unlock()

	a.rememberSession(ctx, externalID)
	_ = eng.Load(ctx, externalID)
	return s
}

// Keys held in ephemeral session storage for the lifetime of the REPL.
const (
	sessionUserKey    = "session_user"
	sessionStartedKey = "session_started_at"
)

func (a *App) rememberSession(ctx context.Context, externalID string) {
	if a.stores.Session == nil {
		return
	}
	err := multierr.Combine(
		a.stores.Session.Set(ctx, sessionUserKey, externalID),
		a.stores.Session.Set(ctx, sessionStartedKey, time.Now().UTC().Format(time.RFC3339)),
	)
	if err != nil {
		a.log.Warn(ctx, "session storage write failed", "error", err)
	}
}

func (a *App) sessionUser(ctx context.Context) string {
	if a.stores.Session == nil {
		return ""
	}
	v, ok, err := a.stores.Session.Get(ctx, sessionUserKey)
	if err != nil || !ok {
		return ""
	}
	return v
}

func (a *App) current() *session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur
}

func (a *App) closeRetired() {
	a.mu.Lock()
	retired := a.retired
	a.retired = nil
	a.mu.Unlock()

	for _, s := range retired {
		if err := s.eng.Close(); err != nil {
			a.log.Debug(context.Background(), "closing ended session", "error", err)
		}
	}
}

// Package engine keeps one user record consistent between memory, the
// local cache and the remote store.
//
// A Load hydrates from cache, resolves the external id to a canonical id,
// fetches the record and then follows realtime change events for it. Local
// edits are applied optimistically on top of the last server-confirmed
// record and dropped again once their own write completes, so a failed
// write rolls back by construction.
//
// Every state-changing continuation checks the generation it was started
// under. Identifier changes, teardown and Close bump the generation, which
// makes results of superseded requests fall on the floor. Teardown is
// final: nothing that completes after it can bring state back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/cachestore"
	"github.com/dmitrijs2005/coachportal/internal/client/client"
	"github.com/dmitrijs2005/coachportal/internal/client/identity"
	"github.com/dmitrijs2005/coachportal/internal/client/metrics"
	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/client/realtime"
	"github.com/dmitrijs2005/coachportal/internal/client/teardown"
	"github.com/dmitrijs2005/coachportal/internal/common"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"golang.org/x/time/rate"
)

// Remote is the part of the API client the engine uses.
type Remote interface {
	Me(ctx context.Context) (*models.UserRecord, error)
	Upsert(ctx context.Context, req client.UpsertRequest) (*models.UserRecord, error)
}

// Resolver maps an external identifier to the canonical record id.
type Resolver interface {
	Resolve(ctx context.Context, externalID string) identity.Resolution
}

type Teardown interface {
	Run(ctx context.Context, reason teardown.Reason) error
}

// errSuperseded marks a continuation whose generation is no longer active.
var errSuperseded = errors.New("superseded")

type pendingWrite struct {
	seq    uint64
	change models.PendingChange
}

// Engine keeps one user's record consistent across memory, the local
// cache and the server. All state sits behind mu; network calls run
// outside it and their results are applied only while gen is unchanged.
// An Engine is single-use: after teardown Load, Refresh, Write and
// Logout return common.ErrSessionEnded.
type Engine struct {
	remote   Remote
	resolver Resolver
	cache    *cachestore.Store
	listener realtime.Listener
	td       Teardown
	log      logging.Logger
	opts     Options
	limiter  *rate.Limiter

	bg   context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu          sync.Mutex
	gen         uint64
	closed      bool
	started     bool
	loading     bool
	synced      bool
	knownID     bool
	phase       Phase
	externalID  string
	canonicalID string
	base        *models.UserRecord
	fetchedAt   time.Time
	pending     []pendingWrite
	seq         uint64

	subscribing bool
	subCancel   context.CancelFunc
	sub         realtime.Subscription
}

// New builds an engine. listener and td may be nil, in which case there is
// no realtime feed and teardown only clears memory and the record cache.
func New(remote Remote, resolver Resolver, cache *cachestore.Store, listener realtime.Listener, td Teardown, log logging.Logger, opts Options) *Engine {
	if opts.Mirrored == nil {
		opts.Mirrored = DefaultMirrored
	}
	limit := rate.Inf
	if opts.RefreshInterval > 0 {
		limit = rate.Every(opts.RefreshInterval)
	}
	bg, stop := context.WithCancel(context.Background())
	return &Engine{
		remote:   remote,
		resolver: resolver,
		cache:    cache,
		listener: listener,
		td:       td,
		log:      log,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		bg:       bg,
		stop:     stop,
		phase:    PhaseInit,
	}
}

// Load starts tracking the user identified by externalID and returns once
// the initial resolve and fetch have finished. Failures are logged and
// leave the displayed state as it was.
//
// Loading the identifier that is already tracked is a no-op, including
// while its first load is still running. A different identifier drops
// everything known about the previous one.
func (e *Engine) Load(ctx context.Context, externalID string) error {
	e.mu.Lock()
	if e.endedLocked() {
		e.mu.Unlock()
		return common.ErrSessionEnded
	}
	if externalID == "" || (e.started && externalID == e.externalID) {
		e.mu.Unlock()
		return nil
	}

	var old realtime.Subscription
	if e.started {
		old = e.resetLocked()
	}
	e.started = true
	e.externalID = externalID
	e.loading = true
	gen := e.gen

	if entry := e.cache.Get(ctx, cachestore.UserKey(externalID)); entry != nil {
		e.base = entry.User
		e.fetchedAt = entry.FetchedAt
		e.knownID = entry.User.ID != ""
		e.setPhaseLocked(PhaseHydrated)
	}
	e.setPhaseLocked(PhaseResolving)
	e.mu.Unlock()

	closeSubscription(old)

	if err := e.resolveAndFetch(ctx, gen, externalID); err != nil && !errors.Is(err, errSuperseded) {
		e.log.Debug(ctx, "initial load incomplete", "external_id", externalID, "error", err)
	}
	return nil
}

// Refresh refetches the tracked record, resolving the identifier first if
// that has not succeeded yet. It is a no-op while a load is in flight.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.endedLocked() {
		e.mu.Unlock()
		return common.ErrSessionEnded
	}
	if !e.started || e.loading {
		e.mu.Unlock()
		return nil
	}
	e.loading = true
	gen := e.gen

	var err error
	if e.canonicalID == "" {
		id := e.externalID
		e.setPhaseLocked(PhaseResolving)
		e.mu.Unlock()
		err = e.resolveAndFetch(ctx, gen, id)
	} else {
		e.setPhaseLocked(PhaseFetching)
		e.mu.Unlock()
		err = e.fetch(ctx, gen, nil)
	}

	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

func (e *Engine) resolveAndFetch(ctx context.Context, gen uint64, externalID string) error {
	res := e.resolver.Resolve(ctx, externalID)

	e.mu.Lock()
	if !e.activeLocked(gen) {
		e.mu.Unlock()
		return errSuperseded
	}
	if !res.Resolved() {
		e.loading = false
		e.setPhaseLocked(PhaseUnresolved)
		e.mu.Unlock()
		return common.ErrResolution
	}
	e.canonicalID = res.CanonicalID
	e.setPhaseLocked(PhaseFetching)
	e.subscribeLocked(gen)
	e.mu.Unlock()

	return e.fetch(ctx, gen, res.Record)
}

// fetch completes a load. A record the resolver already returned is used
// as the fetch result.
func (e *Engine) fetch(ctx context.Context, gen uint64, prefetched *models.UserRecord) error {
	u := prefetched
	var err error
	if u == nil {
		u, err = e.remote.Me(ctx)
	}

	e.mu.Lock()
	if !e.activeLocked(gen) {
		e.mu.Unlock()
		return errSuperseded
	}
	e.loading = false

	if err != nil {
		metrics.Fetches.WithLabelValues("error").Inc()
		if errors.Is(err, client.ErrNotFound) {
			if e.knownID {
				id := e.canonicalID
				e.mu.Unlock()
				e.log.Warn(ctx, "record gone, tearing down", "id", id)
				if tdErr := e.teardown(ctx, gen, teardown.ReasonAccountDeleted); tdErr != nil {
					e.log.Warn(ctx, "teardown incomplete", "error", tdErr)
				}
				return common.ErrRecordGone
			}
			sub := e.releaseLocked()
			e.canonicalID = ""
			e.setPhaseLocked(PhaseUnresolved)
			e.mu.Unlock()
			closeSubscription(sub)
			return fmt.Errorf("%w: %w", common.ErrFetch, err)
		}
		e.setPhaseLocked(e.restingPhaseLocked())
		e.mu.Unlock()
		e.log.Warn(ctx, "fetch failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrFetch, err)
	}

	metrics.Fetches.WithLabelValues("ok").Inc()
	// The server wins over anything not yet confirmed.
	e.pending = nil
	e.adoptLocked(ctx, u)
	e.setPhaseLocked(PhaseSynced)
	e.subscribeLocked(gen)
	e.mu.Unlock()
	return nil
}

// Write applies change optimistically, sends it and reconciles with the
// stored record the server returns. On failure the change is rolled back
// and the error wraps common.ErrWrite and the client error.
func (e *Engine) Write(ctx context.Context, change models.PendingChange) error {
	if change.Empty() {
		return nil
	}

	e.mu.Lock()
	if e.endedLocked() {
		e.mu.Unlock()
		return common.ErrSessionEnded
	}
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("%w: no user loaded", common.ErrWrite)
	}
	gen := e.gen
	e.seq++
	seq := e.seq
	e.pending = append(e.pending, pendingWrite{seq: seq, change: change.Clone()})
	e.persistLocked(ctx)

	scope := e.canonicalID
	if scope == "" {
		scope = e.externalID
	}
	e.mu.Unlock()

	u, err := e.remote.Upsert(ctx, client.UpsertRequest{ID: scope, Fields: change.Fields, Profile: change.Profile})
	if err == nil && u == nil {
		err = errors.New("empty response")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.activeLocked(gen) {
		return common.ErrSessionEnded
	}
	e.dropPendingLocked(seq)

	if err != nil {
		metrics.Writes.WithLabelValues("error").Inc()
		e.persistLocked(ctx)
		e.log.Warn(ctx, "write failed, rolled back", "id", scope, "error", err)
		return fmt.Errorf("%w: %w", common.ErrWrite, err)
	}

	metrics.Writes.WithLabelValues("ok").Inc()
	e.adoptLocked(ctx, u)
	if e.phase == PhaseUnresolved || e.phase == PhaseHydrated || e.phase == PhaseInit {
		e.setPhaseLocked(PhaseSynced)
	}
	e.subscribeLocked(gen)
	return nil
}

// Logout tears the session down with reason logout.
func (e *Engine) Logout(ctx context.Context) error {
	e.mu.Lock()
	if e.endedLocked() {
		e.mu.Unlock()
		return common.ErrSessionEnded
	}
	gen := e.gen
	e.mu.Unlock()
	return e.teardown(ctx, gen, teardown.ReasonLogout)
}

// Close releases the realtime subscription and waits for background work.
// The engine is unusable afterwards; the cache is left as is.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.gen++
	sub := e.releaseLocked()
	e.stop()
	e.mu.Unlock()

	err := closeSubscription(sub)
	e.wg.Wait()
	return err
}

// State returns a copy of the displayed state. When the record is stale
// it also kicks off a background refresh, at most once per
// RefreshInterval.
func (e *Engine) State() State {
	e.mu.Lock()
	st := State{
		Phase:       e.phase,
		Record:      e.viewLocked(),
		FetchedAt:   e.fetchedAt,
		CanonicalID: e.canonicalID,
		Pending:     len(e.pending),
	}
	if st.Record != nil && !e.fetchedAt.IsZero() {
		st.Stale = e.cache.IsStale(&models.CacheEntry{User: st.Record, FetchedAt: e.fetchedAt})
	}
	kick := st.Stale && e.started && !e.loading && !e.endedLocked() && e.limiter.Allow()
	if kick {
		e.wg.Add(1)
	}
	e.mu.Unlock()

	if kick {
		go func() {
			defer e.wg.Done()
			if err := e.Refresh(e.bg); err != nil {
				e.log.Debug(e.bg, "background refresh failed", "error", err)
			}
		}()
	}
	return st
}

// Record returns a copy of the displayed record, or nil.
func (e *Engine) Record() *models.UserRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// ScopeID is the id writes are addressed to: the canonical id when known,
// the external id otherwise.
func (e *Engine) ScopeID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.canonicalID != "" {
		return e.canonicalID
	}
	return e.externalID
}

func (e *Engine) teardown(ctx context.Context, gen uint64, reason teardown.Reason) error {
	e.mu.Lock()
	if !e.activeLocked(gen) {
		e.mu.Unlock()
		return nil
	}
	e.gen++
	sub := e.releaseLocked()
	if e.externalID != "" {
		e.cache.Invalidate(ctx, cachestore.UserKey(e.externalID))
	}
	if e.canonicalID != "" {
		e.cache.Invalidate(ctx, cachestore.UserKey(e.canonicalID))
		e.cache.Invalidate(ctx, cachestore.AvatarKey(e.canonicalID))
	}
	e.base = nil
	e.pending = nil
	e.fetchedAt = time.Time{}
	e.loading = false
	e.synced = false
	e.knownID = false
	e.canonicalID = ""
	e.setPhaseLocked(PhaseTornDown)
	e.mu.Unlock()

	closeSubscription(sub)
	e.log.Info(ctx, "session ended", "reason", string(reason))

	if e.td == nil {
		return nil
	}
	return e.td.Run(ctx, reason)
}

func (e *Engine) subscribeLocked(gen uint64) {
	if e.listener == nil || e.subscribing || e.canonicalID == "" {
		return
	}
	e.subscribing = true
	id := e.canonicalID
	ctx, cancel := context.WithCancel(e.bg)
	e.subCancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if d := e.opts.SubscribeDelay; d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}

		sub, err := e.listener.Subscribe(ctx, realtime.UserFilter(id))
		if err != nil {
			e.log.Warn(ctx, "realtime subscribe failed", "id", id, "error", err)
			e.mu.Lock()
			if e.activeLocked(gen) {
				e.subscribing = false
			}
			e.mu.Unlock()
			return
		}

		e.mu.Lock()
		if !e.activeLocked(gen) || ctx.Err() != nil {
			e.mu.Unlock()
			closeSubscription(sub)
			return
		}
		e.sub = sub
		e.mu.Unlock()

		e.consume(gen, sub)
	}()
}

func (e *Engine) consume(gen uint64, sub realtime.Subscription) {
	for ev := range sub.Events() {
		metrics.RealtimeEvents.WithLabelValues(string(ev.Type)).Inc()
		if !e.handleEvent(gen, ev) {
			return
		}
	}

	// The feed ended on its own; allow the next fetch to resubscribe.
	e.mu.Lock()
	if e.activeLocked(gen) && e.sub == sub {
		e.sub = nil
		e.subscribing = false
	}
	e.mu.Unlock()
}

// handleEvent applies one change event and reports whether to keep
// consuming.
func (e *Engine) handleEvent(gen uint64, ev models.ChangeEvent) bool {
	ctx := e.bg

	e.mu.Lock()
	if !e.activeLocked(gen) {
		e.mu.Unlock()
		return false
	}

	switch {
	case ev.Type == models.EventDelete:
		if ev.Old != nil && ev.Old.ID != "" && ev.Old.ID != e.canonicalID {
			e.mu.Unlock()
			return true
		}
		e.mu.Unlock()
		if err := e.teardown(ctx, gen, teardown.ReasonAccountDeleted); err != nil {
			e.log.Warn(ctx, "teardown incomplete", "error", err)
		}
		return false

	case ev.IsUpsert() && ev.New != nil:
		if ev.New.ID != "" && ev.New.ID != e.canonicalID {
			break
		}
		e.adoptLocked(ctx, ev.New)
	}

	e.mu.Unlock()
	return true
}

// adoptLocked makes u the server-confirmed base record and persists the
// displayed view. Pending overlays are kept.
func (e *Engine) adoptLocked(ctx context.Context, u *models.UserRecord) {
	rec := u.Clone()
	rec.Mirror(e.opts.Mirrored...)
	e.base = rec
	if rec.ID != "" {
		e.canonicalID = rec.ID
		e.knownID = true
	}
	e.synced = true
	e.fetchedAt = e.cache.Now()
	e.persistLocked(ctx)

	if rec.ID != "" && rec.AvatarURL != "" {
		e.cache.PutAvatar(ctx, rec.ID, rec.AvatarURL, e.opts.AvatarTTL)
	}
}

func (e *Engine) persistLocked(ctx context.Context) {
	view := e.viewLocked()
	if view == nil {
		e.cache.Invalidate(ctx, cachestore.UserKey(e.externalID))
		return
	}
	e.cache.PutEntry(ctx, cachestore.UserKey(e.externalID), models.CacheEntry{User: view, FetchedAt: e.fetchedAt})
}

// viewLocked is the base record with pending overlays applied in order.
func (e *Engine) viewLocked() *models.UserRecord {
	if e.base == nil && len(e.pending) == 0 {
		return nil
	}
	v := e.base.Clone()
	if v == nil {
		v = &models.UserRecord{}
	}
	for _, p := range e.pending {
		v.Apply(p.change, e.opts.Mirrored...)
	}
	return v
}

func (e *Engine) dropPendingLocked(seq uint64) {
	for i, p := range e.pending {
		if p.seq == seq {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return
		}
	}
}

// resetLocked forgets the current identifier and returns the subscription
// to close.
func (e *Engine) resetLocked() realtime.Subscription {
	e.gen++
	sub := e.releaseLocked()
	e.base = nil
	e.pending = nil
	e.fetchedAt = time.Time{}
	e.loading = false
	e.synced = false
	e.knownID = false
	e.canonicalID = ""
	e.setPhaseLocked(PhaseInit)
	return sub
}

func (e *Engine) releaseLocked() realtime.Subscription {
	if e.subCancel != nil {
		e.subCancel()
		e.subCancel = nil
	}
	sub := e.sub
	e.sub = nil
	e.subscribing = false
	return sub
}

func (e *Engine) restingPhaseLocked() Phase {
	switch {
	case e.synced:
		return PhaseSynced
	case e.base != nil:
		return PhaseHydrated
	default:
		return PhaseInit
	}
}

func (e *Engine) setPhaseLocked(p Phase) {
	if e.phase == p {
		return
	}
	from := e.phase
	e.phase = p
	if e.opts.OnPhase != nil {
		e.opts.OnPhase(from, p)
	}
}

func (e *Engine) activeLocked(gen uint64) bool {
	return gen == e.gen && !e.closed
}

func (e *Engine) endedLocked() bool {
	return e.closed || e.phase == PhaseTornDown
}

func closeSubscription(sub realtime.Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Close()
}

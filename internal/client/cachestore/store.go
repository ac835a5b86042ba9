// Package cachestore keeps the last known user snapshot in a persistent
// key/value backend. It is a performance aid only: reads that fail or find
// garbage are misses, and writes that fail are logged and dropped.
package cachestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/client/repositories/kv"
	"github.com/dmitrijs2005/coachportal/internal/logging"
)

const (
	UserPrefix   = "user-cache:"
	AvatarPrefix = "avatar-cache:"
)

func UserKey(id string) string   { return UserPrefix + id }
func AvatarKey(id string) string { return AvatarPrefix + id }

// Store is the local record cache. Reads and writes never fail:
// backend errors are logged and treated as a miss.
type Store struct {
	backend kv.Store
	ttl     time.Duration
	now     func() time.Time
	log     logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over backend whose entries go stale after ttl.
func New(backend kv.Store, ttl time.Duration, log logging.Logger, opts ...Option) *Store {
	s := &Store{backend: backend, ttl: ttl, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the cached entry or nil on a miss. Undecodable entries and
// backend errors count as misses.
func (s *Store) Get(ctx context.Context, key string) *models.CacheEntry {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "cache read failed", "key", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var e models.CacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.User == nil {
		s.log.Debug(ctx, "ignoring malformed cache entry", "key", key)
		return nil
	}
	return &e
}

// Put overwrites key with a copy of u stamped with the current time.
func (s *Store) Put(ctx context.Context, key string, u *models.UserRecord) {
	if u == nil {
		return
	}
	s.write(ctx, key, models.CacheEntry{User: u, FetchedAt: s.now()})
}

// PutEntry stores e as-is, keeping its FetchedAt.
func (s *Store) PutEntry(ctx context.Context, key string, e models.CacheEntry) {
	if e.User == nil {
		return
	}
	s.write(ctx, key, e)
}

// PutAvatar caches the avatar URL of user id for expiresIn.
func (s *Store) PutAvatar(ctx context.Context, id, url string, expiresIn time.Duration) {
	s.write(ctx, AvatarKey(id), models.AvatarEntry{URL: url, FetchedAt: s.now(), ExpiresIn: expiresIn})
}

// GetAvatar returns the cached avatar URL of id if present and unexpired.
func (s *Store) GetAvatar(ctx context.Context, id string) (string, bool) {
	raw, ok, err := s.backend.Get(ctx, AvatarKey(id))
	if err != nil || !ok {
		return "", false
	}
	var e models.AvatarEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return "", false
	}
	if e.ExpiresIn > 0 && s.now().Sub(e.FetchedAt) > e.ExpiresIn {
		return "", false
	}
	return e.URL, true
}

// Invalidate removes key.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "cache invalidate failed", "key", key, "error", err)
	}
}

// IsStale reports whether e is older than the TTL. A zero TTL never expires.
func (s *Store) IsStale(e *models.CacheEntry) bool {
	if e == nil || s.ttl <= 0 {
		return false
	}
	return e.Age(s.now()) > s.ttl
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration { return s.ttl }

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) write(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Warn(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.backend.Set(ctx, key, string(b)); err != nil {
		s.log.Warn(ctx, "cache write failed", "key", key, "error", err)
	}
}

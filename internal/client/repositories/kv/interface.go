// Package kv provides the string key/value backends the portal client
// keeps state in: the persistent local store (SQLite), ephemeral session
// storage (memory) and tagged service-level caches (Redis).
package kv

import (
	"context"
	"strings"

	"go.uber.org/multierr"
)

// Store is a string key/value backend. Values are JSON documents written
// by the callers; the store does not interpret them.
type Store interface {
	// Get returns ("", false, nil) when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// DeletePrefixes removes every key of s that starts with one of prefixes.
// Deletion carries on past individual failures; all errors are returned.
func DeletePrefixes(ctx context.Context, s Store, prefixes ...string) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, key := range keys {
		if !hasAnyPrefix(key, prefixes) {
			continue
		}
		errs = multierr.Append(errs, s.Delete(ctx, key))
	}
	return errs
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

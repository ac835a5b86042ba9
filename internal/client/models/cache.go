package models

import "time"

// CacheEntry is the persisted snapshot of a user record.
type CacheEntry struct {
	User      *UserRecord `json:"user"`
	FetchedAt time.Time   `json:"fetchedAt"`
}

// Age reports how old the snapshot is relative to now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// AvatarEntry caches the resolved avatar URL of a user.
type AvatarEntry struct {
	URL       string        `json:"url"`
	FetchedAt time.Time     `json:"fetchedAt"`
	ExpiresIn time.Duration `json:"expiresIn"`
}

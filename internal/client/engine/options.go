package engine

import "time"

// DefaultMirrored are the namespaced profile entries that are also shown as
// top-level attributes.
var DefaultMirrored = []string{"dob", "gender", "category", "city", "state"}

// Options tunes timing and mirroring of an Engine.
type Options struct {
	// SubscribeDelay holds the realtime subscription back after the first
	// fetch starts.
	SubscribeDelay time.Duration
	Mirrored       []string
	AvatarTTL      time.Duration
	// RefreshInterval is the minimum spacing of background refreshes
	// started because the displayed record is stale.
	RefreshInterval time.Duration
	// OnPhase observes every phase change. It runs with the engine lock
	// held and must not call back into the engine.
	OnPhase func(from, to Phase)
}

// DefaultOptions returns the settings the CLI starts from.
func DefaultOptions() Options {
	return Options{
		SubscribeDelay:  500 * time.Millisecond,
		Mirrored:        DefaultMirrored,
		AvatarTTL:       24 * time.Hour,
		RefreshInterval: 30 * time.Second,
	}
}

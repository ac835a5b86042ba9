package engine

import (
	"time"

	"github.com/dmitrijs2005/coachportal/internal/client/models"
)

// Phase is the lifecycle position of an Engine.
type Phase string

const (
	PhaseInit       Phase = "INIT"
	PhaseHydrated   Phase = "HYDRATED_FROM_CACHE"
	PhaseResolving  Phase = "RESOLVING_ID"
	PhaseUnresolved Phase = "UNRESOLVED"
	PhaseFetching   Phase = "FETCHING"
	PhaseSynced     Phase = "SYNCED"
	PhaseTornDown   Phase = "TORN_DOWN"
)

// State is a point-in-time copy of what the engine displays. Record
// already includes unconfirmed local edits.
type State struct {
	Phase       Phase
	Record      *models.UserRecord
	FetchedAt   time.Time
	Stale       bool
	CanonicalID string
	// Pending counts writes that have not round-tripped yet.
	Pending int
}

// Package identity maps identity provider subjects onto canonical user ids.
package identity

import (
	"context"

	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"github.com/google/uuid"
)

// Lookup finds a user record by provider subject. A miss is (nil, nil).
type Lookup interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.UserRecord, error)
}

// Resolution is the outcome of Resolve. CanonicalID is empty when the
// subject has no record (yet). Record is set only when the lookup already
// returned the full record.
type Resolution struct {
	CanonicalID string
	Record      *models.UserRecord
}

func (r Resolution) Resolved() bool { return r.CanonicalID != "" }

// Resolver finds the canonical id for an external identifier.
type Resolver struct {
	lookup Lookup
	log    logging.Logger
}

// NewResolver returns a Resolver that queries lookup.
func NewResolver(lookup Lookup, log logging.Logger) *Resolver {
	return &Resolver{lookup: lookup, log: log}
}

// IsCanonical reports whether id already has the shape of a canonical id
// (a hyphenated UUID).
func IsCanonical(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Resolve never fails: lookup errors are logged and reported as an empty
// resolution, which callers treat like "not found yet".
func (r *Resolver) Resolve(ctx context.Context, externalID string) Resolution {
	if externalID == "" {
		return Resolution{}
	}
	if IsCanonical(externalID) {
		return Resolution{CanonicalID: externalID}
	}

	u, err := r.lookup.FindByExternalID(ctx, externalID)
	if err != nil {
		r.log.Warn(ctx, "identity resolution failed", "external_id", externalID, "error", err)
		return Resolution{}
	}
	if u == nil || u.ID == "" {
		r.log.Debug(ctx, "no record for external id", "external_id", externalID)
		return Resolution{}
	}
	return Resolution{CanonicalID: u.ID, Record: u}
}

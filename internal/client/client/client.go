package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/coachportal/internal/client/models"
)

// Client is the remote user store as seen by the sync engine.
type Client interface {
	// Me returns the record of the authenticated identity.
	Me(ctx context.Context) (*models.UserRecord, error)
	// FindByExternalID looks a record up by identity provider subject.
	// A miss is (nil, nil).
	FindByExternalID(ctx context.Context, externalID string) (*models.UserRecord, error)
	// Upsert sends changed fields and returns the full stored record.
	Upsert(ctx context.Context, req UpsertRequest) (*models.UserRecord, error)
	Ping(ctx context.Context) error
}

// UpsertRequest is the body of POST /users/upsert: the record scope id,
// changed top-level fields inline, and changed namespaced fields under
// "profile".
type UpsertRequest struct {
	ID      string
	Fields  map[string]any
	Profile map[string]any
}

func (r UpsertRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		body[k] = v
	}
	body["id"] = r.ID
	if len(r.Profile) > 0 {
		body["profile"] = r.Profile
	}
	return json.Marshal(body)
}

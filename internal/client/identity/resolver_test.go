package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	users map[string]*models.UserRecord
	err   error
	calls int
}

func (f *fakeLookup) FindByExternalID(ctx context.Context, externalID string) (*models.UserRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[externalID], nil
}

const canonical = "6f1c2d4e-8a9b-4c3d-9e8f-0a1b2c3d4e5f"

func TestIsCanonical(t *testing.T) {
	assert.True(t, IsCanonical(canonical))
	assert.False(t, IsCanonical("abc123"))
	assert.False(t, IsCanonical("6f1c2d4e8a9b4c3d9e8f0a1b2c3d4e5f"), "unhyphenated form is not canonical")
	assert.False(t, IsCanonical("urn:uuid:"+canonical))
	assert.False(t, IsCanonical(""))
}

func TestResolve_CanonicalShortCircuits(t *testing.T) {
	l := &fakeLookup{}
	r := NewResolver(l, logging.Nop())

	res := r.Resolve(context.Background(), canonical)
	assert.Equal(t, canonical, res.CanonicalID)
	assert.Nil(t, res.Record)
	assert.Zero(t, l.calls)
}

func TestResolve_Hit(t *testing.T) {
	u := &models.UserRecord{ID: "1111", ExternalID: "abc123", FullName: "Asha"}
	l := &fakeLookup{users: map[string]*models.UserRecord{"abc123": u}}
	r := NewResolver(l, logging.Nop())

	res := r.Resolve(context.Background(), "abc123")
	require.True(t, res.Resolved())
	assert.Equal(t, "1111", res.CanonicalID)
	assert.Same(t, u, res.Record)
	assert.Equal(t, 1, l.calls)
}

func TestResolve_MissAndErrorAreEmpty(t *testing.T) {
	r := NewResolver(&fakeLookup{}, logging.Nop())
	assert.False(t, r.Resolve(context.Background(), "abc123").Resolved())

	r = NewResolver(&fakeLookup{err: errors.New("network down")}, logging.Nop())
	assert.Equal(t, Resolution{}, r.Resolve(context.Background(), "abc123"))

	l := &fakeLookup{}
	r = NewResolver(l, logging.Nop())
	assert.Equal(t, Resolution{}, r.Resolve(context.Background(), ""))
	assert.Zero(t, l.calls)
}

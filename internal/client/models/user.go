// Package models defines the client-side data model of the portal: the
// user record, cached snapshots, pending edits and realtime change events.
package models

import (
	"slices"
	"time"
)

// UserRecord is the canonical user profile as served by the API.
//
// Well-known attributes live in typed fields; anything else the server
// knows about the user is carried in the namespaced Profile map.
type UserRecord struct {
	// ID is the canonical internal identifier. Empty until resolved.
	ID string `json:"id"`
	// ExternalID is the identity provider subject. Used only for resolution.
	ExternalID string `json:"external_id,omitempty"`

	FullName  string `json:"full_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	DOB       string `json:"dob,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Category  string `json:"category,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`

	Profile map[string]any `json:"profile,omitempty"`

	SyncedAt time.Time `json:"synced_at,omitempty"`
}

type attribute struct {
	get func(*UserRecord) string
	set func(*UserRecord, string)
}

var attributes = map[string]attribute{
	"full_name":  {func(u *UserRecord) string { return u.FullName }, func(u *UserRecord, v string) { u.FullName = v }},
	"email":      {func(u *UserRecord) string { return u.Email }, func(u *UserRecord, v string) { u.Email = v }},
	"phone":      {func(u *UserRecord) string { return u.Phone }, func(u *UserRecord, v string) { u.Phone = v }},
	"avatar_url": {func(u *UserRecord) string { return u.AvatarURL }, func(u *UserRecord, v string) { u.AvatarURL = v }},
	"dob":        {func(u *UserRecord) string { return u.DOB }, func(u *UserRecord, v string) { u.DOB = v }},
	"gender":     {func(u *UserRecord) string { return u.Gender }, func(u *UserRecord, v string) { u.Gender = v }},
	"category":   {func(u *UserRecord) string { return u.Category }, func(u *UserRecord, v string) { u.Category = v }},
	"city":       {func(u *UserRecord) string { return u.City }, func(u *UserRecord, v string) { u.City = v }},
	"state":      {func(u *UserRecord) string { return u.State }, func(u *UserRecord, v string) { u.State = v }},
}

// IsAttribute reports whether name is one of the well-known top-level fields.
func IsAttribute(name string) bool {
	_, ok := attributes[name]
	return ok
}

// Lookup returns the current value of a field by name.
//
// A non-empty top-level attribute always wins over a namespaced entry of
// the same name; the Profile map is consulted only when the attribute is
// unknown or empty.
func (u *UserRecord) Lookup(name string) (any, bool) {
	if u == nil {
		return nil, false
	}
	if a, ok := attributes[name]; ok {
		if v := a.get(u); v != "" {
			return v, true
		}
	}
	v, ok := u.Profile[name]
	return v, ok
}

// SetAttribute assigns a well-known top-level field. Unknown names and
// non-string values are ignored and reported as false.
func (u *UserRecord) SetAttribute(name string, value any) bool {
	a, ok := attributes[name]
	if !ok {
		return false
	}
	switch v := value.(type) {
	case string:
		a.set(u, v)
	case nil:
		a.set(u, "")
	default:
		return false
	}
	return true
}

// SetProfile assigns a namespaced entry, allocating the map on first use.
func (u *UserRecord) SetProfile(name string, value any) {
	if u.Profile == nil {
		u.Profile = make(map[string]any)
	}
	u.Profile[name] = cloneValue(value)
}

// Mirror copies the given namespaced entries onto their top-level
// attributes so they display without knowing the namespace.
func (u *UserRecord) Mirror(names ...string) {
	for _, name := range names {
		v, ok := u.Profile[name]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			u.SetAttribute(name, s)
		}
	}
}

// Apply merges a pending change into the record. Namespaced entries listed
// in mirrored are also reflected on the top-level attribute.
func (u *UserRecord) Apply(c PendingChange, mirrored ...string) {
	for k, v := range c.Fields {
		if !u.SetAttribute(k, v) {
			u.SetProfile(k, v)
		}
	}
	for k, v := range c.Profile {
		u.SetProfile(k, v)
		if slices.Contains(mirrored, k) {
			u.SetAttribute(k, v)
		}
	}
}

// Clone returns a deep copy; the copy shares nothing with u.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.Profile != nil {
		c.Profile = make(map[string]any, len(u.Profile))
		for k, v := range u.Profile {
			c.Profile[k] = cloneValue(v)
		}
	}
	return &c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

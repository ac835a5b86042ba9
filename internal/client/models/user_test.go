package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_TopLevelWinsOverProfile(t *testing.T) {
	u := &UserRecord{City: "Pune", Profile: map[string]any{"city": "Nagpur", "school": "DPS"}}

	v, ok := u.Lookup("city")
	require.True(t, ok)
	assert.Equal(t, "Pune", v)

	v, ok = u.Lookup("school")
	require.True(t, ok)
	assert.Equal(t, "DPS", v)
}

func TestLookup_EmptyTopLevelFallsBackToProfile(t *testing.T) {
	u := &UserRecord{Profile: map[string]any{"dob": "2008-04-01"}}

	v, ok := u.Lookup("dob")
	require.True(t, ok)
	assert.Equal(t, "2008-04-01", v)

	_, ok = u.Lookup("missing")
	assert.False(t, ok)

	var nilUser *UserRecord
	_, ok = nilUser.Lookup("email")
	assert.False(t, ok)
}

func TestApply_SplitsFieldsAndMirrors(t *testing.T) {
	u := &UserRecord{FullName: "Asha"}
	u.Apply(PendingChange{
		Fields:  map[string]any{"email": "asha@example.com", "nickname": "ash"},
		Profile: map[string]any{"gender": "female", "subjects": []string{"physics"}},
	}, "gender")

	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, "ash", u.Profile["nickname"])
	assert.Equal(t, "female", u.Profile["gender"])
	assert.Equal(t, "female", u.Gender)
	assert.Equal(t, []string{"physics"}, u.Profile["subjects"])
}

func TestMirror_CopiesOnlyNonEmptyStrings(t *testing.T) {
	u := &UserRecord{State: "MH", Profile: map[string]any{"state": "", "category": "obc", "city": 42}}
	u.Mirror("state", "category", "city")

	assert.Equal(t, "MH", u.State)
	assert.Equal(t, "obc", u.Category)
	assert.Empty(t, u.City)
}

func TestClone_IsDeep(t *testing.T) {
	u := &UserRecord{ID: "1", Profile: map[string]any{
		"subjects": []string{"maths"},
		"extra":    map[string]any{"k": []any{"a"}},
	}}
	c := u.Clone()

	c.Profile["subjects"].([]string)[0] = "biology"
	c.Profile["extra"].(map[string]any)["k"].([]any)[0] = "b"
	c.ID = "2"

	assert.Equal(t, "1", u.ID)
	assert.Equal(t, []string{"maths"}, u.Profile["subjects"])
	assert.Equal(t, []any{"a"}, u.Profile["extra"].(map[string]any)["k"])
	assert.Nil(t, (*UserRecord)(nil).Clone())
}

func TestSetAttribute_RejectsUnknownAndNonString(t *testing.T) {
	u := &UserRecord{}
	assert.False(t, u.SetAttribute("nickname", "x"))
	assert.False(t, u.SetAttribute("email", 5))
	assert.True(t, u.SetAttribute("email", nil))
	assert.True(t, IsAttribute("avatar_url"))
	assert.False(t, IsAttribute("subjects"))
}

func TestChangeEvent_JSON(t *testing.T) {
	var ev ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(`{"eventType":"update","new":{"id":"1","full_name":"Asha"}}`), &ev))
	assert.True(t, ev.IsUpsert())
	assert.Equal(t, "Asha", ev.New.FullName)
	assert.False(t, ChangeEvent{Type: EventDelete}.IsUpsert())
}

func TestCacheEntry_Age(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := &CacheEntry{FetchedAt: now.Add(-90 * time.Second)}
	assert.Equal(t, 90*time.Second, e.Age(now))
}

func TestPendingChange_CloneAndLen(t *testing.T) {
	c := PendingChange{Fields: map[string]any{"email": "a@b.co"}, Profile: map[string]any{"subjects": []string{"x"}}}
	d := c.Clone()
	d.Profile["subjects"].([]string)[0] = "y"

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Empty())
	assert.True(t, PendingChange{}.Empty())
	assert.Equal(t, []string{"x"}, c.Profile["subjects"])
}

package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T, schema string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

const authSchema = `CREATE TABLE auth_metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`

func TestRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteRepository(openDB(t, authSchema))

	v, err := r.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Nil(t, v, "absent key is (nil, nil)")

	require.NoError(t, r.Set(ctx, KeyAccessToken, []byte("tok-1")))
	require.NoError(t, r.Set(ctx, KeyAccessToken, []byte("tok-2")))
	require.NoError(t, r.Set(ctx, KeySubject, []byte{0xAA, 0xBB}))

	v, err = r.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok-2"), v, "set overwrites")

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{KeyAccessToken: []byte("tok-2"), KeySubject: {0xAA, 0xBB}}, all)

	require.NoError(t, r.Delete(ctx, KeySubject))
	require.NoError(t, r.Delete(ctx, KeySubject), "delete is idempotent")
	all, err = r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, r.Clear(ctx))
	all, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepository_ClosedDB(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, authSchema)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"get", func() error { _, err := r.Get(ctx, "k"); return err }, "failed to get auth metadata[k]"},
		{"set", func() error { return r.Set(ctx, "k", []byte("v")) }, "failed to set auth metadata[k]"},
		{"delete", func() error { return r.Delete(ctx, "k") }, "failed to delete auth metadata[k]"},
		{"clear", func() error { return r.Clear(ctx) }, "failed to clear auth metadata"},
		{"list", func() error { _, err := r.List(ctx); return err }, "failed to list auth metadata"},
		{"load session", func() error { _, err := LoadSession(ctx, r); return err }, "load session"},
		{"save session", func() error { return SaveSession(ctx, r, Session{Subject: "s"}) }, "save session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorContains(t, tt.call(), tt.want)
		})
	}
}

func TestList_NullValue(t *testing.T) {
	db := openDB(t, `CREATE TABLE auth_metadata (key TEXT PRIMARY KEY, value BLOB);`)
	_, err := db.Exec(`INSERT INTO auth_metadata(key, value) VALUES ('bad', NULL);`)
	require.NoError(t, err)

	m, err := NewSQLiteRepository(db).List(context.Background())
	require.NoError(t, err)
	v, ok := m["bad"]
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestSaveAndLoadSession(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteRepository(openDB(t, authSchema))

	empty, err := LoadSession(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, Session{}, empty)

	want := Session{Subject: "abc123", AccessToken: "a1", RefreshToken: "r1"}
	require.NoError(t, SaveSession(ctx, r, want))

	got, err := LoadSession(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, m, KeyIDToken, "empty fields are not written")
}

package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openKV(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)
	return db
}

func keys(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	return n
}

func insert(key string) func(ctx context.Context, tx DBTX) error {
	return func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO kv(key, value) VALUES (?, '{}')`, key)
		return err
	}
}

func TestWithTx(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		fn       func(ctx context.Context, tx DBTX) error
		wantErr  error
		wantRows int
	}{
		{name: "commit", fn: insert("user-cache:a"), wantRows: 1},
		{name: "two writes commit together", fn: func(ctx context.Context, tx DBTX) error {
			if err := insert("a")(ctx, tx); err != nil {
				return err
			}
			return insert("b")(ctx, tx)
		}, wantRows: 2},
		{name: "fn error rolls back", fn: func(ctx context.Context, tx DBTX) error {
			if err := insert("a")(ctx, tx); err != nil {
				return err
			}
			return boom
		}, wantErr: boom},
		{name: "failed statement rolls back", fn: func(ctx context.Context, tx DBTX) error {
			if err := insert("a")(ctx, tx); err != nil {
				return err
			}
			return insert("a")(ctx, tx)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openKV(t)
			err := WithTx(context.Background(), db, nil, tt.fn)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantRows == 0:
				require.Error(t, err)
			default:
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantRows, keys(t, db))
		})
	}
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := openKV(t)

	require.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insert("a")(ctx, tx))
			panic("kaput")
		})
	})
	assert.Equal(t, 0, keys(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := openKV(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorContains(t, err, "begin tx")
}

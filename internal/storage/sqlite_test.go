package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE kv (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSQLiteStorage_SetAndGet(t *testing.T) {
	r := NewSQLiteStorage(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestSQLiteStorage_GetAbsent_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteStorage(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSQLiteStorage_SetOverwrites(t *testing.T) {
	r := NewSQLiteStorage(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestSQLiteStorage_Delete_IsIdempotent(t *testing.T) {
	r := NewSQLiteStorage(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("v")))
	require.NoError(t, r.Delete(ctx, "k"))
	require.NoError(t, r.Delete(ctx, "k"))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestMemoryStorage_MatchesContract(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()

	v, err := m.Get(ctx, "absent")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	v, err = m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	// returned slice is a copy
	v[0] = 'x'
	v2, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v2)

	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "k"))
}

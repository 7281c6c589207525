package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"memory", ":memory:", ":memory:?" + sqlitePragmas},
		{"file", "notes.db", "notes.db?" + sqlitePragmas},
		{"file with query", "file:notes.db?mode=rwc", "file:notes.db?mode=rwc&" + sqlitePragmas},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, sqliteDSN(tc.url))
		})
	}
}

func TestOpen_Sqlite(t *testing.T) {
	ctx := context.Background()

	conn, err := Open(ctx, "sqlite", ":memory:", Pool{MaxIdle: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.SQL.Close() })
	require.Equal(t, "sqlite", conn.Dialect)

	var n int
	require.NoError(t, conn.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n))
	require.Zero(t, n)
}

func TestOpen_SqliteURLWithQuery(t *testing.T) {
	ctx := context.Background()
	url := "file:" + filepath.Join(t.TempDir(), "notes.db") + "?mode=rwc"

	conn, err := Open(ctx, "sqlite", url, Pool{MaxOpen: 1, MaxIdle: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.SQL.Close() })

	var fk int
	require.NoError(t, conn.SQL.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	require.Equal(t, 1, fk)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x", Pool{})
	require.Error(t, err)
}

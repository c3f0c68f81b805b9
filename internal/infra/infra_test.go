package infra

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDBCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "intime.db")
	db, err := NewSQLiteDB(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)

	require.FileExists(t, path)
}

func TestNewSQLiteDBRequiresPath(t *testing.T) {
	_, err := NewSQLiteDB(context.Background(), "")
	require.Error(t, err)
}

func TestNewRedisClientPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedisClient(context.Background(), "")
	require.Error(t, err)
}

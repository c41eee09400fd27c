package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalogd/catalogd/internal/catalogerr"
)

func TestLocalExistsBeforeAndAfterCommit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	l := NewLocal(path)

	exists, err := l.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	conn, err := l.Open(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), conn.ExpectedVersion)

	result, err := l.Commit(ctx, conn)
	require.NoError(t, err)
	require.Equal(t, CommitOK, result)
	require.NoError(t, l.Close(conn))

	exists, err = l.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestLocalCommitDetectsConflict(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	l := NewLocal(path)

	seed, err := l.Open(ctx)
	require.NoError(t, err)
	_, err = l.Commit(ctx, seed)
	require.NoError(t, err)
	require.NoError(t, l.Close(seed))

	connA, err := l.Open(ctx)
	require.NoError(t, err)
	connB, err := l.Open(ctx)
	require.NoError(t, err)

	_, err = connA.DB.Exec(`UPDATE catalog_meta SET version = 1 WHERE id = 1`)
	require.NoError(t, err)
	result, err := l.Commit(ctx, connA)
	require.NoError(t, err)
	require.Equal(t, CommitOK, result)
	require.NoError(t, l.Close(connA))

	_, err = connB.DB.Exec(`UPDATE catalog_meta SET version = 1 WHERE id = 1`)
	require.NoError(t, err)
	result, err = l.Commit(ctx, connB)
	require.NoError(t, err)
	require.Equal(t, CommitConflict, result, "connB observed the pre-A version and must lose the race")
	require.NoError(t, l.Close(connB))
}

func TestOpenDispatchesOnScheme(t *testing.T) {
	b, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	_, ok := b.(*Local)
	require.True(t, ok)

	s3Backend, err := Open(context.Background(), "s3://bucket/key")
	if err != nil {
		// LoadDefaultConfig can fail in a sandboxed test environment
		// with no AWS config at all; what matters is that it didn't
		// misroute to the invalid-URI path.
		require.NotEqual(t, catalogerr.InvalidArgument, catalogerr.KindOf(err))
		return
	}
	_, ok = s3Backend.(*ObjectStore)
	require.True(t, ok)

	_, err = Open(context.Background(), "s3://missing-key-only")
	require.Error(t, err)
	require.Equal(t, catalogerr.InvalidArgument, catalogerr.KindOf(err))
}

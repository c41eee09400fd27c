// Package backend implements the narrow storage contract the commit
// loop drives: exists, open, and commit against either a local file or
// an object-store artifact.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/catalogd/catalogd/internal/catalogerr"
)

// CommitResult reports the outcome of a backend.Commit call.
type CommitResult int

const (
	CommitOK CommitResult = iota
	CommitConflict
)

// Connection is a live, mutable handle on the catalog artifact. Callers
// run operations against DB, then call Commit with the version they
// observed at Open time.
type Connection struct {
	DB              *sql.DB
	ExpectedVersion int64

	workingPath string // local backend: path of the private working file
	objectKey   string // object-store backend: key of the downloaded object
	etag        string // object-store backend: precondition token observed at Open
}

// Backend is implemented by every storage variant (local file, S3, GCS).
// Upper layers address all of them polymorphically through this interface.
type Backend interface {
	// Exists reports whether a catalog artifact is present at the
	// configured location.
	Exists(ctx context.Context) (bool, error)

	// Open returns a live connection to the catalog, downloading the
	// artifact to a private working file first if it is remote.
	Open(ctx context.Context) (*Connection, error)

	// Commit publishes the local working artifact back to the
	// configured location, succeeding only if the remote copy's
	// version still matches conn.ExpectedVersion.
	Commit(ctx context.Context, conn *Connection) (CommitResult, error)

	// Close releases the working file and any open handles. Safe to
	// call after a failed Open.
	Close(conn *Connection) error
}

// Open dispatches rawURI to the matching Backend variant: a bare path or
// file:// URI resolves to Local, s3:// to an S3-backed ObjectStore, and
// gs:// to a GCS-backed ObjectStore.
func Open(ctx context.Context, rawURI string) (Backend, error) {
	switch {
	case strings.HasPrefix(rawURI, "s3://"):
		return newS3ObjectStore(ctx, rawURI)
	case strings.HasPrefix(rawURI, "gs://"):
		return newGCSObjectStore(ctx, rawURI)
	case strings.HasPrefix(rawURI, "file://"):
		return NewLocal(strings.TrimPrefix(rawURI, "file://")), nil
	default:
		return NewLocal(rawURI), nil
	}
}

func readVersion(db *sql.DB) (int64, error) {
	var version int64
	err := db.QueryRow(`SELECT version FROM catalog_meta WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, catalogerr.NewStorageUnavailable(fmt.Errorf("read catalog_meta.version: %w", err))
	}
	return version, nil
}

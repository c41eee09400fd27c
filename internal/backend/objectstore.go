package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/schema"
)

// ObjectAPI is the minimal surface ObjectStore needs from an object-store
// client. s3store.go and gcsstore.go each adapt a concrete SDK client to
// this interface; tests can substitute an in-memory fake (see
// pkg/fixcatalog).
type ObjectAPI interface {
	// Get downloads the object and reports the precondition token
	// (ETag for S3, generation for GCS) observed alongside it. A
	// missing object is reported via exists=false, not an error.
	Get(ctx context.Context, key string) (data []byte, token string, exists bool, err error)

	// Stat reports whether the object exists without downloading it.
	Stat(ctx context.Context, key string) (exists bool, err error)

	// PutIfMatch uploads data under key, succeeding only if the
	// object's current precondition token equals expectedToken (the
	// empty string means "object must not exist yet"). A precondition
	// failure is reported via ok=false, not an error.
	PutIfMatch(ctx context.Context, key string, data []byte, expectedToken string) (ok bool, err error)
}

// ObjectStore is the object-storage backend variant: open downloads the
// object to a private working file; commit re-uploads it with a
// precondition tied to the token observed at open.
type ObjectStore struct {
	API ObjectAPI
	Key string
}

func (o *ObjectStore) Exists(ctx context.Context) (bool, error) {
	exists, err := o.API.Stat(ctx, o.Key)
	if err != nil {
		return false, catalogerr.NewStorageUnavailable(err)
	}
	return exists, nil
}

func (o *ObjectStore) Open(ctx context.Context) (*Connection, error) {
	data, token, exists, err := o.API.Get(ctx, o.Key)
	if err != nil {
		return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("download object: %w", err))
	}

	working, err := os.CreateTemp("", ".catalog-work-*.db")
	if err != nil {
		return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("create working file: %w", err))
	}
	workingPath := working.Name()
	working.Close()

	if exists {
		if err := os.WriteFile(workingPath, data, 0o644); err != nil {
			os.Remove(workingPath)
			return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("write working file: %w", err))
		}
	}

	db, err := sql.Open("sqlite3", workingPath+"?_foreign_keys=on")
	if err != nil {
		os.Remove(workingPath)
		return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("open working file: %w", err))
	}
	if err := schema.Init(db, false); err != nil {
		db.Close()
		os.Remove(workingPath)
		return nil, err
	}

	version, err := readVersion(db)
	if err != nil {
		db.Close()
		os.Remove(workingPath)
		return nil, err
	}

	return &Connection{
		DB:              db,
		ExpectedVersion: version,
		workingPath:     workingPath,
		objectKey:       o.Key,
		etag:            token,
	}, nil
}

// Commit re-uploads the working file with a precondition tied to
// conn.etag. A precondition failure surfaces as CommitConflict, never an
// error, so the concurrency controller can retry.
func (o *ObjectStore) Commit(ctx context.Context, conn *Connection) (CommitResult, error) {
	if err := conn.DB.Close(); err != nil {
		return CommitConflict, catalogerr.NewStorageUnavailable(fmt.Errorf("close working db: %w", err))
	}
	data, err := os.ReadFile(conn.workingPath)
	if err != nil {
		return CommitConflict, catalogerr.NewStorageUnavailable(fmt.Errorf("read working file: %w", err))
	}

	ok, err := o.API.PutIfMatch(ctx, conn.objectKey, data, conn.etag)
	if err != nil {
		return CommitConflict, catalogerr.NewStorageUnavailable(fmt.Errorf("upload object: %w", err))
	}
	if !ok {
		return CommitConflict, nil
	}
	return CommitOK, nil
}

func (o *ObjectStore) Close(conn *Connection) error {
	if conn == nil {
		return nil
	}
	if conn.DB != nil {
		conn.DB.Close()
	}
	if conn.workingPath != "" {
		os.Remove(conn.workingPath)
	}
	return nil
}

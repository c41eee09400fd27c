package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/schema"
)

// Local is the local-file backend variant: commit is a fsync + atomic
// rename to the canonical path, gated by a version read-back of the
// canonical file immediately before the swap.
type Local struct {
	Path string
}

// NewLocal returns a Local backend rooted at path.
func NewLocal(path string) *Local {
	return &Local{Path: path}
}

func (l *Local) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(l.Path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, catalogerr.NewStorageUnavailable(err)
	}
	return true, nil
}

// Open copies the canonical file into a private working file and opens
// that, so a crashed writer never corrupts the canonical artifact
// mid-write. If the canonical file does not exist yet, the working file
// starts empty. Either way Open runs schema.Init against the working
// file before returning.
func (l *Local) Open(ctx context.Context) (*Connection, error) {
	working, err := os.CreateTemp(filepath.Dir(l.Path), ".catalog-work-*.db")
	if err != nil {
		return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("create working file: %w", err))
	}
	workingPath := working.Name()
	working.Close()

	exists, err := l.Exists(ctx)
	if err != nil {
		os.Remove(workingPath)
		return nil, err
	}
	if exists {
		if err := copyFile(l.Path, workingPath); err != nil {
			os.Remove(workingPath)
			return nil, catalogerr.NewStorageUnavailable(fmt.Errorf("copy-on-open: %w", err))
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

	return &Connection{DB: db, ExpectedVersion: version, workingPath: workingPath}, nil
}

// Commit fsyncs the working file and atomically renames it over the
// canonical path, but only if the canonical file's current version still
// matches conn.ExpectedVersion. The version check and the rename are not
// a single atomic unit at the filesystem level; a lost race shows up as
// a stale read-back, and the commit loop's caller retries on conflict.
func (l *Local) Commit(ctx context.Context, conn *Connection) (CommitResult, error) {
	currentVersion, err := l.currentCanonicalVersion(ctx)
	if err != nil {
		return CommitConflict, err
	}
	if currentVersion != conn.ExpectedVersion {
		return CommitConflict, nil
	}

	if err := fsync(conn.workingPath); err != nil {
		return CommitConflict, catalogerr.NewStorageUnavailable(fmt.Errorf("fsync working file: %w", err))
	}
	if err := os.Rename(conn.workingPath, l.Path); err != nil {
		return CommitConflict, catalogerr.NewStorageUnavailable(fmt.Errorf("rename working file: %w", err))
	}
	conn.workingPath = "" // ownership transferred to the canonical path
	return CommitOK, nil
}

func (l *Local) Close(conn *Connection) error {
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

func (l *Local) currentCanonicalVersion(ctx context.Context) (int64, error) {
	exists, err := l.Exists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	db, err := sql.Open("sqlite3", l.Path+"?mode=ro&_foreign_keys=on")
	if err != nil {
		return 0, catalogerr.NewStorageUnavailable(err)
	}
	defer db.Close()
	return readVersion(db)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func fsync(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

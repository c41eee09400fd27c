// Package fixcatalog provides per-test catalog sandboxes: a private
// SQLite-backed local artifact for local-backend tests, and an optional
// MinIO container for object-store backend tests. A file per test is
// isolation enough for the local backend; only the object-store tests
// need a shared server process.
package fixcatalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/catalogd/catalogd/internal/backend"
	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/retry"
	"github.com/catalogd/catalogd/internal/schema"
)

// Sandbox is a private catalog artifact scoped to one test.
type Sandbox struct {
	Path  string
	Store *catalog.Store
}

// NewSandbox creates an initialized local-backend catalog at a private
// path under t.TempDir, wires a catalog.Store over it with a
// test-friendly retry policy (short backoff, deterministic seed), and
// registers cleanup.
func NewSandbox(t *testing.T) *Sandbox {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("catalog-%x.db", time.Now().UnixNano()))

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sandbox catalog: %v", err)
	}
	if err := schema.Init(db, false); err != nil {
		t.Fatalf("init sandbox schema: %v", err)
	}
	db.Close()

	policy := retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Seed: 1}
	store := catalog.New(backend.NewLocal(path), policy, nil)

	sbx := &Sandbox{Path: path, Store: store}
	t.Cleanup(func() {
		os.Remove(path)
	})
	return sbx
}

// OpenReadOnly opens a direct read-only handle on the sandbox's current
// artifact, for assertions that want to bypass the Store and inspect raw
// rows.
func (s *Sandbox) OpenReadOnly(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", s.Path+"?mode=ro&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sandbox for inspection: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Context returns a short-lived context scoped to one sandbox operation.
func Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

package fixcatalog

import (
	"testing"
	"time"

	"github.com/catalogd/catalogd/internal/backend"
	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/retry"
)

// ObjectSandbox is an object-store-backed catalog sandbox. It wraps
// whatever backend.ObjectAPI the caller supplies, typically the in-memory
// FakeObjectAPI. The MinIO-backed tests use NewMinIOObjectSandbox
// instead, which goes through backend.Open.
type ObjectSandbox struct {
	Store *catalog.Store
	API   backend.ObjectAPI
	Key   string
}

// NewObjectSandbox wires a catalog.Store over api at key, with the same
// test-friendly retry policy NewSandbox uses.
func NewObjectSandbox(t *testing.T, api backend.ObjectAPI, key string) *ObjectSandbox {
	t.Helper()
	policy := retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Seed: 1}
	store := catalog.New(&backend.ObjectStore{API: api, Key: key}, policy, nil)
	return &ObjectSandbox{Store: store, API: api, Key: key}
}

package catalog_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalogd/catalogd/internal/model"
	"github.com/catalogd/catalogd/pkg/fixcatalog"
)

// TestMain boots the shared MinIO container once for this package's test
// binary when CATALOG_MINIO_TESTS is set. The rest of the package's tests
// run against local or in-memory backends and need no container.
func TestMain(m *testing.M) {
	if os.Getenv("CATALOG_MINIO_TESTS") != "" {
		fixcatalog.BootMinIOOnce(&testing.T{}) // ok to pass a dummy here
	}
	os.Exit(m.Run())
}

// TestMinIOBackedEmissionRoundTrips runs one emission against a real
// s3:// backend (MinIO), exercising s3store.go's credential, endpoint,
// and ETag-precondition wiring end to end instead of FakeObjectAPI's
// in-memory compare-and-swap.
func TestMinIOBackedEmissionRoundTrips(t *testing.T) {
	if !fixcatalog.MinIOBooted() {
		t.Skip("set CATALOG_MINIO_TESTS=1 to run the MinIO-backed integration test")
	}
	sbx := fixcatalog.NewMinIOObjectSandbox(t, "catalogd-test", "catalog.db")
	ctx := context.Background()

	_, err := sbx.Store.UpsertDataset(ctx, model.EmitRequest{
		Name: "minio-active", Path: "o.parquet", Format: "parquet",
	})
	require.NoError(t, err)

	result, err := sbx.Store.View(ctx, func(db *sql.DB) (any, error) {
		var version int64
		if err := db.QueryRow(`SELECT version FROM catalog_meta WHERE id = 1`).Scan(&version); err != nil {
			return nil, err
		}
		return version, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.(int64))
}

package catalog_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/catalogd/catalogd/internal/model"
	"github.com/catalogd/catalogd/pkg/fixcatalog"
)

// Two writers open the same object-store-backed catalog at version v and
// each emit a distinct dataset. Exactly one wins the first
// compare-and-swap; the other observes a conflict internally and retries,
// so both commits eventually land and the version advances by exactly the
// number of successful commits.
func TestConcurrentWritersSerializeThroughCompareAndSwap(t *testing.T) {
	api := fixcatalog.NewFakeObjectAPI()
	key := "catalog.db"

	seed := fixcatalog.NewObjectSandbox(t, api, key)
	_, err := seed.Store.UpsertDataset(context.Background(), model.EmitRequest{
		Name: "seed", Path: "p", Format: "parquet",
	})
	require.NoError(t, err)

	startVersion := readObjectVersion(t, api, key)

	sbxA := fixcatalog.NewObjectSandbox(t, api, key)
	sbxB := fixcatalog.NewObjectSandbox(t, api, key)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = sbxA.Store.UpsertDataset(context.Background(), model.EmitRequest{
			Name: "writer-a", Path: "p", Format: "parquet",
		})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = sbxB.Store.UpsertDataset(context.Background(), model.EmitRequest{
			Name: "writer-b", Path: "p", Format: "parquet",
		})
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	endVersion := readObjectVersion(t, api, key)
	require.Equal(t, startVersion+2, endVersion)

	final := fixcatalog.NewObjectSandbox(t, api, key)
	names := datasetNames(t, final)
	require.ElementsMatch(t, []string{"seed", "writer-a", "writer-b"}, names)
}

func readObjectVersion(t *testing.T, api *fixcatalog.FakeObjectAPI, key string) int64 {
	t.Helper()
	data, _, exists, err := api.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, exists)

	tmp := t.TempDir() + "/probe.db"
	require.NoError(t, os.WriteFile(tmp, data, 0o644))
	db, err := sql.Open("sqlite3", tmp)
	require.NoError(t, err)
	defer db.Close()

	var version int64
	require.NoError(t, db.QueryRow(`SELECT version FROM catalog_meta WHERE id = 1`).Scan(&version))
	return version
}

func datasetNames(t *testing.T, sbx *fixcatalog.ObjectSandbox) []string {
	t.Helper()
	result, err := sbx.Store.View(context.Background(), func(db *sql.DB) (any, error) {
		rows, err := db.Query(`SELECT name FROM datasets`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var names []string
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return nil, err
			}
			names = append(names, n)
		}
		return names, rows.Err()
	})
	require.NoError(t, err)
	return result.([]string)
}

package catalog_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/model"
	"github.com/catalogd/catalogd/pkg/fixcatalog"
)

func TestStoreUpsertDatasetBumpsVersion(t *testing.T) {
	sbx := fixcatalog.NewSandbox(t)
	ctx := context.Background()

	_, err := sbx.Store.UpsertDataset(ctx, model.EmitRequest{Name: "orders", Path: "o.parquet", Format: "parquet"})
	require.NoError(t, err)

	db := sbx.OpenReadOnly(t)
	var version int64
	require.NoError(t, db.QueryRow(`SELECT version FROM catalog_meta WHERE id = 1`).Scan(&version))
	require.Equal(t, int64(1), version)
}

func TestStoreDeleteDatasetCascades(t *testing.T) {
	sbx := fixcatalog.NewSandbox(t)
	ctx := context.Background()

	id, err := sbx.Store.UpsertDataset(ctx, model.EmitRequest{Name: "d", Path: "p", Format: "parquet"})
	require.NoError(t, err)
	require.NoError(t, sbx.Store.Mutate(ctx, func(tx *sql.Tx) error {
		return catalog.ReplaceFields(tx, id, []model.Field{{Name: "a", DataType: "Int64", Ordinal: 0}})
	}))

	require.NoError(t, sbx.Store.DeleteDataset(ctx, "d"))

	db := sbx.OpenReadOnly(t)
	var fieldCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fields WHERE dataset_id = ?`, id).Scan(&fieldCount))
	require.Equal(t, 0, fieldCount, "delete must cascade to fields")

	err = sbx.Store.DeleteDataset(ctx, "d")
	require.Error(t, err)
	require.Equal(t, catalogerr.NotFound, catalogerr.KindOf(err))
}

func TestStoreTagAddThenRemoveRestoresPriorSet(t *testing.T) {
	sbx := fixcatalog.NewSandbox(t)
	ctx := context.Background()

	id, err := sbx.Store.UpsertDataset(ctx, model.EmitRequest{Name: "d", Path: "p", Format: "parquet"})
	require.NoError(t, err)
	require.NoError(t, sbx.Store.Mutate(ctx, func(tx *sql.Tx) error {
		return catalog.AddTags(tx, id, []string{"keep"})
	}))

	require.NoError(t, sbx.Store.AddTags(ctx, "d", []string{"pii", "gold"}))
	require.NoError(t, sbx.Store.RemoveTags(ctx, "d", []string{"pii", "gold"}))

	db := sbx.OpenReadOnly(t)
	var tags []string
	rows, err := db.Query(`SELECT tag FROM tags WHERE dataset_id = ?`, id)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var tag string
		require.NoError(t, rows.Scan(&tag))
		tags = append(tags, tag)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"keep"}, tags)
}

func TestStoreAddTagsUnknownDatasetFails(t *testing.T) {
	sbx := fixcatalog.NewSandbox(t)
	err := sbx.Store.AddTags(context.Background(), "ghost", []string{"x"})
	require.Error(t, err)
	require.Equal(t, catalogerr.NotFound, catalogerr.KindOf(err))
}

func TestStoreRemoveTagsIsNoopOnUnknownTags(t *testing.T) {
	sbx := fixcatalog.NewSandbox(t)
	ctx := context.Background()

	_, err := sbx.Store.UpsertDataset(ctx, model.EmitRequest{Name: "d", Path: "p", Format: "parquet"})
	require.NoError(t, err)

	require.NoError(t, sbx.Store.RemoveTags(ctx, "d", []string{"never-added"}))
}

func TestGlossaryUpsertLinkAndGet(t *testing.T) {
	sbx := fixcatalog.NewSandbox(t)
	ctx := context.Background()

	_, err := sbx.Store.UpsertDataset(ctx, model.EmitRequest{Name: "orders", Path: "p", Format: "parquet"})
	require.NoError(t, err)

	require.NoError(t, sbx.Store.UpsertGlossaryTerm(ctx, model.GlossaryTerm{
		Term: "revenue", Definition: "gross sales amount",
	}))
	require.NoError(t, sbx.Store.LinkGlossaryTerm(ctx, model.GlossaryBinding{
		Term: "revenue", Dataset: "orders", ColumnName: "amount",
	}))

	term, bindings, err := sbx.Store.GetGlossaryTerm(ctx, "revenue")
	require.NoError(t, err)
	require.Equal(t, "gross sales amount", term.Definition)
	require.Len(t, bindings, 1)
	require.Equal(t, "orders", bindings[0].Dataset)
	require.Equal(t, "amount", bindings[0].ColumnName)

	_, _, err = sbx.Store.GetGlossaryTerm(ctx, "missing")
	require.Equal(t, catalogerr.NotFound, catalogerr.KindOf(err))
}

func TestGlossaryLinkUnknownDatasetFails(t *testing.T) {
	sbx := fixcatalog.NewSandbox(t)
	ctx := context.Background()

	require.NoError(t, sbx.Store.UpsertGlossaryTerm(ctx, model.GlossaryTerm{Term: "revenue", Definition: "d"}))
	err := sbx.Store.LinkGlossaryTerm(ctx, model.GlossaryBinding{Term: "revenue", Dataset: "ghost"})
	require.Error(t, err)
	require.Equal(t, catalogerr.InvalidArgument, catalogerr.KindOf(err))
}

package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/emitter"
	"github.com/catalogd/catalogd/internal/model"
	"github.com/catalogd/catalogd/internal/query"
	"github.com/catalogd/catalogd/pkg/fixcatalog"
)

func newEmitterAndQuery(t *testing.T) (*emitter.Emitter, *query.Engine) {
	sbx := fixcatalog.NewSandbox(t)
	return emitter.New(sbx.Store), query.New(sbx.Store)
}

func TestGetNotFound(t *testing.T) {
	_, q := newEmitterAndQuery(t)
	_, err := q.Get(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, catalogerr.NotFound, catalogerr.KindOf(err))
}

func TestListFiltersByTenantAndDomain(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()
	schema := []model.Field{{Name: "id", DataType: "Int64"}}

	require.NoError(t, em.Emit(ctx, model.EmitRequest{Name: "a", Path: "p", Format: "parquet", Tenant: "t1", Domain: "sales", Schema: schema}))
	require.NoError(t, em.Emit(ctx, model.EmitRequest{Name: "b", Path: "p", Format: "parquet", Tenant: "t2", Domain: "sales", Schema: schema}))
	require.NoError(t, em.Emit(ctx, model.EmitRequest{Name: "c", Path: "p", Format: "parquet", Tenant: "t1", Domain: "marketing", Schema: schema}))

	byTenant, err := q.List(ctx, model.ListFilter{Tenant: "t1"})
	require.NoError(t, err)
	require.Len(t, byTenant, 2)

	byDomain, err := q.List(ctx, model.ListFilter{Domain: "sales"})
	require.NoError(t, err)
	require.Len(t, byDomain, 2)

	both, err := q.List(ctx, model.ListFilter{Tenant: "t1", Domain: "marketing"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	require.Equal(t, "c", both[0].Name)
}

func TestSearchMatchesFieldNames(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()

	require.NoError(t, em.Emit(ctx, model.EmitRequest{
		Name: "orders", Path: "o.parquet", Format: "parquet",
		Schema: []model.Field{
			{Name: "id", DataType: "Int64"},
			{Name: "revenue", DataType: "Float64"},
		},
	}))

	hits, err := q.Search(ctx, "revenue")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "orders", hits[0].Name)

	miss, err := q.Search(ctx, "nonexistent")
	require.NoError(t, err)
	require.Empty(t, miss)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	_, q := newEmitterAndQuery(t)
	_, err := q.Search(context.Background(), "   ")
	require.Error(t, err)
	require.Equal(t, catalogerr.InvalidArgument, catalogerr.KindOf(err))
}

func TestSearchSanitizesPunctuation(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()

	require.NoError(t, em.Emit(ctx, model.EmitRequest{
		Name: "weird-name", Path: "p", Format: "parquet",
		Schema: []model.Field{{Name: "col", DataType: "Utf8"}},
	}))

	// A bare reserved character must not be interpreted as FTS5 syntax
	// or produce a query error; it should simply not crash the engine.
	_, err := q.Search(ctx, `"(broken`)
	require.NoError(t, err)
}

func TestSearchSupportsQuotedPhrases(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()

	require.NoError(t, em.Emit(ctx, model.EmitRequest{
		Name: "facts", Path: "p", Format: "parquet", Domain: "data warehouse",
		Schema: []model.Field{{Name: "id", DataType: "Int64"}},
	}))

	hits, err := q.Search(ctx, `"data warehouse"`)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "facts", hits[0].Name)

	// A phrase matches adjacency, not just token presence.
	reversed, err := q.Search(ctx, `"warehouse data"`)
	require.NoError(t, err)
	require.Empty(t, reversed)
}

func TestSearchSupportsPrefixMatch(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()

	require.NoError(t, em.Emit(ctx, model.EmitRequest{
		Name: "customers", Path: "p", Format: "parquet",
		Schema: []model.Field{{Name: "id", DataType: "Int64"}},
	}))

	hits, err := q.Search(ctx, "cust*")
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestTraverseRejectsOutOfRangeDepth(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()
	require.NoError(t, em.Emit(ctx, model.EmitRequest{Name: "d", Path: "p", Format: "parquet", Schema: []model.Field{{Name: "a", DataType: "Int64"}}}))

	_, err := q.Traverse(ctx, "d", model.Downstream, -1)
	require.Equal(t, catalogerr.InvalidArgument, catalogerr.KindOf(err))

	_, err = q.Traverse(ctx, "d", model.Downstream, 11)
	require.Equal(t, catalogerr.InvalidArgument, catalogerr.KindOf(err))
}

func TestTraverseZeroDepthUsesDefault(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()
	schema := []model.Field{{Name: "id", DataType: "Int64"}}

	// Chain of 4 hops; the default depth of 3 must stop one short.
	names := []string{"n0", "n1", "n2", "n3", "n4"}
	for i, name := range names {
		req := model.EmitRequest{Name: name, Path: "p", Format: "parquet", Schema: schema}
		if i > 0 {
			req.Upstream = []string{names[i-1]}
		}
		require.NoError(t, em.Emit(ctx, req))
	}

	graph, err := q.Traverse(ctx, "n0", model.Downstream, 0)
	require.NoError(t, err)
	require.Len(t, graph.Nodes, query.DefaultTraverseDepth)
}

// Traversal must terminate on graphs containing cycles.
func TestTraverseTerminatesOnCycles(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()
	schema := []model.Field{{Name: "id", DataType: "Int64"}}

	require.NoError(t, em.Emit(ctx, model.EmitRequest{Name: "a", Path: "p", Format: "parquet", Schema: schema}))
	require.NoError(t, em.Emit(ctx, model.EmitRequest{Name: "b", Path: "p", Format: "parquet", Schema: schema, Upstream: []string{"a"}}))
	// Re-emit "a" with "b" as upstream to close the cycle a -> b -> a.
	require.NoError(t, em.Emit(ctx, model.EmitRequest{Name: "a", Path: "p", Format: "parquet", Schema: schema, Upstream: []string{"b"}}))

	graph, err := q.Traverse(ctx, "a", model.Downstream, 10)
	require.NoError(t, err)
	var names []string
	for _, n := range graph.Nodes {
		names = append(names, n.Name)
	}
	require.ElementsMatch(t, []string{"b"}, names, "a cyclic graph must not revisit the start node")
}

func TestStatsCountsAcrossEntities(t *testing.T) {
	em, q := newEmitterAndQuery(t)
	ctx := context.Background()

	require.NoError(t, em.Emit(ctx, model.EmitRequest{
		Name: "raw", Path: "p", Format: "parquet",
		Schema: []model.Field{{Name: "id", DataType: "Int64"}},
		Tags:   []string{"x", "y"},
	}))
	require.NoError(t, em.Emit(ctx, model.EmitRequest{
		Name: "clean", Path: "p", Format: "parquet",
		Schema:   []model.Field{{Name: "id", DataType: "Int64"}},
		Upstream: []string{"raw"},
	}))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Datasets)
	require.Equal(t, 2, stats.Fields)
	require.Equal(t, 1, stats.LineageEdges)
	require.Equal(t, 2, stats.Tags)
	require.Equal(t, int64(2), stats.Version)
}

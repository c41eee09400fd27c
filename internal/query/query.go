// Package query implements the read-only catalog engine: list, get,
// full-text search, bounded lineage traversal, and stats. None of
// these invoke the concurrency controller's commit loop.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/model"
)

// Engine runs read-only operations against a catalog.Store's current
// snapshot.
type Engine struct {
	store *catalog.Store
}

// New wires a query Engine over store.
func New(store *catalog.Store) *Engine {
	return &Engine{store: store}
}

// List returns dataset summaries matching filter, ordered by name.
func (e *Engine) List(ctx context.Context, filter model.ListFilter) ([]model.DatasetSummary, error) {
	result, err := e.store.View(ctx, func(db *sql.DB) (any, error) {
		return listTx(db, filter)
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.DatasetSummary), nil
}

func listTx(db *sql.DB, filter model.ListFilter) ([]model.DatasetSummary, error) {
	q := `SELECT name, path, format, COALESCE(tenant,''), COALESCE(domain,''), COALESCE(owner,''), updated_at
	        FROM datasets WHERE 1=1`
	var args []any
	if filter.Tenant != "" {
		q += ` AND tenant = ?`
		args = append(args, filter.Tenant)
	}
	if filter.Domain != "" {
		q += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	q += ` ORDER BY name`

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, catalogerr.NewInternal(fmt.Errorf("list datasets: %w", err))
	}
	defer rows.Close()

	var out []model.DatasetSummary
	for rows.Next() {
		var d model.DatasetSummary
		if err := rows.Scan(&d.Name, &d.Path, &d.Format, &d.Tenant, &d.Domain, &d.Owner, &d.UpdatedAt); err != nil {
			return nil, catalogerr.NewInternal(fmt.Errorf("scan dataset: %w", err))
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get returns the full detail for name: schema, tags, and sorted
// immediate upstream/downstream neighbor names. Fails with NotFound if
// name is absent.
func (e *Engine) Get(ctx context.Context, name string) (model.Dataset, error) {
	result, err := e.store.View(ctx, func(db *sql.DB) (any, error) {
		return getTx(db, name)
	})
	if err != nil {
		return model.Dataset{}, err
	}
	return result.(model.Dataset), nil
}

func getTx(db *sql.DB, name string) (model.Dataset, error) {
	var (
		d                                  model.Dataset
		id                                 int64
		tenant, domain, owner, description sql.NullString
		rowCount                           sql.NullInt64
	)
	err := db.QueryRow(
		`SELECT id, name, path, format, tenant, domain, owner, description, row_count, created_at, updated_at
		   FROM datasets WHERE name = ?`, name,
	).Scan(&id, &d.Name, &d.Path, &d.Format, &tenant, &domain, &owner, &description, &rowCount, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Dataset{}, catalogerr.NewNotFound(name)
	}
	if err != nil {
		return model.Dataset{}, catalogerr.NewInternal(fmt.Errorf("get dataset: %w", err))
	}
	d.Tenant, d.Domain, d.Owner, d.Description = tenant.String, domain.String, owner.String, description.String
	if rowCount.Valid {
		d.RowCount = &rowCount.Int64
	}

	fields, err := db.Query(
		`SELECT name, data_type, nullable, ordinal FROM fields WHERE dataset_id = ? ORDER BY ordinal`, id,
	)
	if err != nil {
		return model.Dataset{}, catalogerr.NewInternal(fmt.Errorf("query fields: %w", err))
	}
	defer fields.Close()
	d.Fields = []model.Field{}
	for fields.Next() {
		var f model.Field
		if err := fields.Scan(&f.Name, &f.DataType, &f.Nullable, &f.Ordinal); err != nil {
			return model.Dataset{}, catalogerr.NewInternal(err)
		}
		d.Fields = append(d.Fields, f)
	}
	if err := fields.Err(); err != nil {
		return model.Dataset{}, catalogerr.NewInternal(err)
	}

	d.Tags, err = queryStrings(db, `SELECT tag FROM tags WHERE dataset_id = ? ORDER BY tag`, id)
	if err != nil {
		return model.Dataset{}, err
	}
	d.Upstream, err = queryStrings(db,
		`SELECT d.name FROM lineage l JOIN datasets d ON d.id = l.upstream_id WHERE l.downstream_id = ? ORDER BY d.name`, id)
	if err != nil {
		return model.Dataset{}, err
	}
	d.Downstream, err = queryStrings(db,
		`SELECT d.name FROM lineage l JOIN datasets d ON d.id = l.downstream_id WHERE l.upstream_id = ? ORDER BY d.name`, id)
	if err != nil {
		return model.Dataset{}, err
	}
	return d, nil
}

func queryStrings(db *sql.DB, q string, args ...any) ([]string, error) {
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, catalogerr.NewInternal(err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Search runs q against the full-text index. An empty or whitespace-only
// query fails with InvalidArgument. Results are ordered by descending
// relevance.
func (e *Engine) Search(ctx context.Context, q string) ([]model.SearchResult, error) {
	if strings.TrimSpace(q) == "" {
		return nil, catalogerr.NewInvalidArgument("search query must not be empty")
	}
	sanitized := sanitizeFTSQuery(q)

	result, err := e.store.View(ctx, func(db *sql.DB) (any, error) {
		return searchTx(db, sanitized)
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.SearchResult), nil
}

// sanitizeFTSQuery escapes FTS5 query syntax the caller did not intend as
// syntax, by quoting every bare token (so any reserved punctuation in it
// is inert) while keeping AND/OR/NOT and the trailing '*' prefix
// operator this engine explicitly supports.
// Balanced "..." phrase spans are carved out of the raw string first,
// before whitespace splitting, so multi-word phrases survive intact.
func sanitizeFTSQuery(q string) string {
	var out []string
	rest := q
	for {
		rest = strings.TrimLeft(rest, " \t\n")
		if rest == "" {
			break
		}
		if rest[0] == '"' {
			if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
				out = append(out, `"`+rest[1:1+end]+`"`)
				rest = rest[end+2:]
				continue
			}
			// Unbalanced opening quote: drop it and escape what follows
			// as ordinary tokens.
			rest = rest[1:]
			continue
		}
		tok := rest
		if sp := strings.IndexAny(rest, " \t\n"); sp >= 0 {
			tok, rest = rest[:sp], rest[sp:]
		} else {
			rest = ""
		}
		out = append(out, escapeFTSToken(tok))
	}
	return strings.Join(out, " ")
}

// escapeFTSToken quotes one bare token, preserving the AND/OR/NOT
// operators and a trailing '*' prefix marker.
func escapeFTSToken(tok string) string {
	upper := strings.ToUpper(tok)
	if upper == "AND" || upper == "OR" || upper == "NOT" {
		return upper
	}
	prefix := strings.HasSuffix(tok, "*")
	core := strings.TrimSuffix(tok, "*")
	core = strings.NewReplacer(`"`, `""`).Replace(core)
	escaped := `"` + core + `"`
	if prefix {
		escaped += "*"
	}
	return escaped
}

func searchTx(db *sql.DB, sanitized string) ([]model.SearchResult, error) {
	rows, err := db.Query(
		`SELECT d.name, d.path, COALESCE(d.domain,''), COALESCE(d.owner,''), bm25(dataset_search) AS rank
		   FROM dataset_search
		   JOIN datasets d ON d.id = dataset_search.rowid
		  WHERE dataset_search MATCH ?
		  ORDER BY rank`, sanitized,
	)
	if err != nil {
		return nil, catalogerr.NewInvalidArgument(fmt.Sprintf("invalid search query: %v", err))
	}
	defer rows.Close()

	out := []model.SearchResult{}
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.Name, &r.Path, &r.Domain, &r.Owner, &r.Rank); err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DefaultTraverseDepth is the hop bound used when a caller passes 0.
const DefaultTraverseDepth = 3

// Traverse runs a breadth-first traversal from name, bounded by maxDepth
// (allowed range [1,10], 0 meaning DefaultTraverseDepth) and guarded
// against cycles by a visited set.
func (e *Engine) Traverse(ctx context.Context, name string, direction model.LineageDirection, maxDepth int) (model.LineageGraph, error) {
	if maxDepth == 0 {
		maxDepth = DefaultTraverseDepth
	}
	if maxDepth < 1 || maxDepth > 10 {
		return model.LineageGraph{}, catalogerr.NewInvalidArgument("max_depth must be in [1, 10]")
	}
	if direction != model.Upstream && direction != model.Downstream {
		return model.LineageGraph{}, catalogerr.NewInvalidArgument("direction must be upstream or downstream")
	}

	result, err := e.store.View(ctx, func(db *sql.DB) (any, error) {
		return traverseTx(db, name, direction, maxDepth)
	})
	if err != nil {
		return model.LineageGraph{}, err
	}
	return result.(model.LineageGraph), nil
}

func traverseTx(db *sql.DB, name string, direction model.LineageDirection, maxDepth int) (model.LineageGraph, error) {
	var startID int64
	err := db.QueryRow(`SELECT id FROM datasets WHERE name = ?`, name).Scan(&startID)
	if err == sql.ErrNoRows {
		return model.LineageGraph{}, catalogerr.NewNotFound(name)
	}
	if err != nil {
		return model.LineageGraph{}, catalogerr.NewInternal(err)
	}

	neighborQuery := `SELECT d.id, d.name FROM lineage l JOIN datasets d ON d.id = l.downstream_id WHERE l.upstream_id = ?`
	if direction == model.Upstream {
		neighborQuery = `SELECT d.id, d.name FROM lineage l JOIN datasets d ON d.id = l.upstream_id WHERE l.downstream_id = ?`
	}

	type queued struct {
		id    int64
		name  string
		depth int
	}
	visited := map[int64]bool{startID: true}
	graph := model.LineageGraph{Nodes: []model.LineageNode{}, Edges: []model.LineageEdge{}}
	queue := []queued{{id: startID, name: name, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		rows, err := db.Query(neighborQuery, cur.id)
		if err != nil {
			return model.LineageGraph{}, catalogerr.NewInternal(err)
		}
		var neighbors []queued
		for rows.Next() {
			var n queued
			if err := rows.Scan(&n.id, &n.name); err != nil {
				rows.Close()
				return model.LineageGraph{}, catalogerr.NewInternal(err)
			}
			n.depth = cur.depth + 1
			neighbors = append(neighbors, n)
		}
		rowErr := rows.Err()
		rows.Close()
		if rowErr != nil {
			return model.LineageGraph{}, catalogerr.NewInternal(rowErr)
		}

		for _, n := range neighbors {
			if direction == model.Downstream {
				graph.Edges = append(graph.Edges, model.LineageEdge{Upstream: cur.name, Downstream: n.name})
			} else {
				graph.Edges = append(graph.Edges, model.LineageEdge{Upstream: n.name, Downstream: cur.name})
			}
			if visited[n.id] {
				continue
			}
			visited[n.id] = true
			graph.Nodes = append(graph.Nodes, model.LineageNode{Name: n.name, Depth: n.depth})
			queue = append(queue, n)
		}
	}

	sort.Slice(graph.Nodes, func(i, j int) bool {
		if graph.Nodes[i].Depth != graph.Nodes[j].Depth {
			return graph.Nodes[i].Depth < graph.Nodes[j].Depth
		}
		return graph.Nodes[i].Name < graph.Nodes[j].Name
	})
	return graph, nil
}

// Stats computes catalog-wide counts and the current version. Each count
// is a single aggregate query, so cost is O(1) queries regardless of
// catalog size.
func (e *Engine) Stats(ctx context.Context) (model.Stats, error) {
	result, err := e.store.View(ctx, func(db *sql.DB) (any, error) {
		return statsTx(db)
	})
	if err != nil {
		return model.Stats{}, err
	}
	return result.(model.Stats), nil
}

func statsTx(db *sql.DB) (model.Stats, error) {
	var s model.Stats
	row := db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM datasets),
			(SELECT COUNT(*) FROM fields),
			(SELECT COUNT(*) FROM lineage),
			(SELECT COUNT(*) FROM tags),
			(SELECT COUNT(*) FROM glossary_terms),
			(SELECT version FROM catalog_meta WHERE id = 1),
			(SELECT updated_at FROM catalog_meta WHERE id = 1)
	`)
	if err := row.Scan(&s.Datasets, &s.Fields, &s.LineageEdges, &s.Tags, &s.GlossaryTerms, &s.Version, &s.LastModified); err != nil {
		return model.Stats{}, catalogerr.NewInternal(fmt.Errorf("compute stats: %w", err))
	}
	return s, nil
}

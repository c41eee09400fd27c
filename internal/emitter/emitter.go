// Package emitter implements the single entry point pipelines use to
// record a dataset's identity, schema, lineage, and tags in one atomic
// call.
package emitter

import (
	"context"
	"database/sql"

	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/model"
)

// Emitter wraps a catalog.Store with the validation and ordering rules
// a single emission carries.
type Emitter struct {
	store *catalog.Store
}

// New wires an Emitter over store.
func New(store *catalog.Store) *Emitter {
	return &Emitter{store: store}
}

// Emit records req's identity, schema, lineage, and tags as one atomic
// unit. The whole batch either appears at version n+1 or not at all.
func (e *Emitter) Emit(ctx context.Context, req model.EmitRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	return e.store.Mutate(ctx, func(tx *sql.Tx) error {
		datasetID, err := catalog.UpsertDatasetTx(tx, req)
		if err != nil {
			return err
		}
		if err := catalog.ReplaceFields(tx, datasetID, req.Schema); err != nil {
			return err
		}
		for _, upstreamName := range req.Upstream {
			if err := catalog.AddLineage(tx, upstreamName, datasetID); err != nil {
				return err
			}
		}
		if err := catalog.AddTags(tx, datasetID, req.Tags); err != nil {
			return err
		}
		return nil
	})
}

func validate(req model.EmitRequest) error {
	if req.Name == "" {
		return catalogerr.NewInvalidArgument("name is required")
	}
	if req.Path == "" {
		return catalogerr.NewInvalidArgument("path is required")
	}
	if req.Format == "" {
		return catalogerr.NewInvalidArgument("format is required")
	}
	if len(req.Schema) == 0 {
		return catalogerr.NewInvalidArgument("schema must have at least one field")
	}
	seen := make(map[string]struct{}, len(req.Schema))
	for _, f := range req.Schema {
		if f.Name == "" {
			return catalogerr.NewInvalidArgument("field name is required")
		}
		if f.DataType == "" {
			return catalogerr.NewInvalidArgument("field data_type is required")
		}
		if _, dup := seen[f.Name]; dup {
			return catalogerr.NewInvalidArgument("duplicate field name " + f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/model"
)

// UpsertDataset inserts a dataset row if name is absent, otherwise updates
// its mutable columns and bumps updated_at.
func (s *Store) UpsertDataset(ctx context.Context, req model.EmitRequest) (int64, error) {
	result, err := s.mutate(ctx, func(tx *sql.Tx) (any, error) {
		return UpsertDatasetTx(tx, req)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func UpsertDatasetTx(tx *sql.Tx, req model.EmitRequest) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO datasets (name, path, format, tenant, domain, owner, description, row_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET
		   path = excluded.path,
		   format = excluded.format,
		   tenant = excluded.tenant,
		   domain = excluded.domain,
		   owner = excluded.owner,
		   description = excluded.description,
		   row_count = excluded.row_count,
		   updated_at = CURRENT_TIMESTAMP`,
		req.Name, req.Path, req.Format, nullable(req.Tenant), nullable(req.Domain),
		nullable(req.Owner), nullable(req.Description), req.RowCount,
	)
	if err != nil {
		return 0, catalogerr.NewInternal(fmt.Errorf("upsert dataset: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		// ON CONFLICT updates don't populate LastInsertId in sqlite; look it up.
		var existingID int64
		if scanErr := tx.QueryRow(`SELECT id FROM datasets WHERE name = ?`, req.Name).Scan(&existingID); scanErr != nil {
			return 0, catalogerr.NewInternal(fmt.Errorf("resolve dataset id: %w", scanErr))
		}
		return existingID, nil
	}
	return id, nil
}

// ReplaceFields deletes all existing field rows for datasetID and inserts
// the new set in order, preserving the given ordinals.
func ReplaceFields(tx *sql.Tx, datasetID int64, fields []model.Field) error {
	if _, err := tx.Exec(`DELETE FROM fields WHERE dataset_id = ?`, datasetID); err != nil {
		return catalogerr.NewInternal(fmt.Errorf("clear fields: %w", err))
	}
	stmt, err := tx.Prepare(`INSERT INTO fields (dataset_id, name, data_type, nullable, ordinal) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return catalogerr.NewInternal(fmt.Errorf("prepare field insert: %w", err))
	}
	defer stmt.Close()
	for _, f := range fields {
		if _, err := stmt.Exec(datasetID, f.Name, f.DataType, f.Nullable, f.Ordinal); err != nil {
			return catalogerr.NewInternal(fmt.Errorf("insert field %q: %w", f.Name, err))
		}
	}
	return nil
}

// AddLineage resolves upstreamName to an existing dataset and adds the
// edge upstream -> downstreamID. Unresolved upstream names are silently
// skipped per the emitter's documented policy; self-edges are rejected;
// duplicate edges are idempotent.
func AddLineage(tx *sql.Tx, upstreamName string, downstreamID int64) error {
	var upstreamID int64
	err := tx.QueryRow(`SELECT id FROM datasets WHERE name = ?`, upstreamName).Scan(&upstreamID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return catalogerr.NewInternal(fmt.Errorf("resolve upstream %q: %w", upstreamName, err))
	}
	if upstreamID == downstreamID {
		return catalogerr.NewInvalidArgument(fmt.Sprintf("dataset %q cannot be its own upstream", upstreamName))
	}
	if _, err := tx.Exec(
		`INSERT INTO lineage (upstream_id, downstream_id) VALUES (?, ?) ON CONFLICT(upstream_id, downstream_id) DO NOTHING`,
		upstreamID, downstreamID,
	); err != nil {
		return catalogerr.NewInternal(fmt.Errorf("insert lineage edge: %w", err))
	}
	return nil
}

// AddTags inserts tags for datasetID, ignoring ones already present.
func AddTags(tx *sql.Tx, datasetID int64, tags []string) error {
	stmt, err := tx.Prepare(`INSERT INTO tags (dataset_id, tag) VALUES (?, ?) ON CONFLICT(dataset_id, tag) DO NOTHING`)
	if err != nil {
		return catalogerr.NewInternal(fmt.Errorf("prepare tag insert: %w", err))
	}
	defer stmt.Close()
	for _, t := range tags {
		if _, err := stmt.Exec(datasetID, t); err != nil {
			return catalogerr.NewInternal(fmt.Errorf("insert tag %q: %w", t, err))
		}
	}
	return nil
}

// AddTags attaches tags to the named dataset, ignoring ones already
// present. Fails with NotFound if the dataset does not exist.
func (s *Store) AddTags(ctx context.Context, datasetName string, tags []string) error {
	_, err := s.mutate(ctx, func(tx *sql.Tx) (any, error) {
		datasetID, err := resolveDatasetID(tx, datasetName)
		if err != nil {
			return nil, err
		}
		return nil, AddTags(tx, datasetID, tags)
	})
	return err
}

// RemoveTags deletes matching tag rows for the named dataset. Unknown
// tags are silently ignored. Fails with NotFound if the dataset does not
// exist.
func (s *Store) RemoveTags(ctx context.Context, datasetName string, tags []string) error {
	_, err := s.mutate(ctx, func(tx *sql.Tx) (any, error) {
		datasetID, err := resolveDatasetID(tx, datasetName)
		if err != nil {
			return nil, err
		}
		stmt, err := tx.Prepare(`DELETE FROM tags WHERE dataset_id = ? AND tag = ?`)
		if err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		defer stmt.Close()
		for _, t := range tags {
			if _, err := stmt.Exec(datasetID, t); err != nil {
				return nil, catalogerr.NewInternal(err)
			}
		}
		return nil, nil
	})
	return err
}

// DeleteDataset removes a dataset and cascades to its fields, lineage
// (both directions), and tags. Not found is an error.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	_, err := s.mutate(ctx, func(tx *sql.Tx) (any, error) {
		res, err := tx.Exec(`DELETE FROM datasets WHERE name = ?`, name)
		if err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		if n == 0 {
			return nil, catalogerr.NewNotFound(name)
		}
		return nil, nil
	})
	return err
}

func resolveDatasetID(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM datasets WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, catalogerr.NewNotFound(name)
	}
	if err != nil {
		return 0, catalogerr.NewInternal(err)
	}
	return id, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

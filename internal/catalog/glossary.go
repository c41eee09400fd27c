package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/model"
)

// UpsertGlossaryTerm inserts a glossary term if absent, otherwise updates
// its definition, domain, and owner. Exposed only via the CLI's
// "glossary set" subcommand, not the HTTP API.
func (s *Store) UpsertGlossaryTerm(ctx context.Context, term model.GlossaryTerm) error {
	return s.Mutate(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO glossary_terms (term, definition, domain, owner) VALUES (?, ?, ?, ?)
			 ON CONFLICT(term) DO UPDATE SET
			   definition = excluded.definition,
			   domain = excluded.domain,
			   owner = excluded.owner`,
			term.Term, term.Definition, nullable(term.Domain), nullable(term.Owner),
		)
		if err != nil {
			return catalogerr.NewInternal(fmt.Errorf("upsert glossary term: %w", err))
		}
		return nil
	})
}

// LinkGlossaryTerm binds an existing glossary term to a dataset, optionally
// scoped to one column. Fails with NotFound if the term does not exist and
// InvalidArgument if the dataset does not: a link is an explicit user
// action naming both ends, not best-effort wiring, so a bad dataset name
// is a caller mistake rather than a missing resource.
func (s *Store) LinkGlossaryTerm(ctx context.Context, binding model.GlossaryBinding) error {
	return s.Mutate(ctx, func(tx *sql.Tx) error {
		var termID int64
		err := tx.QueryRow(`SELECT id FROM glossary_terms WHERE term = ?`, binding.Term).Scan(&termID)
		if err == sql.ErrNoRows {
			return catalogerr.NewNotFound(binding.Term)
		}
		if err != nil {
			return catalogerr.NewInternal(err)
		}

		var datasetID int64
		err = tx.QueryRow(`SELECT id FROM datasets WHERE name = ?`, binding.Dataset).Scan(&datasetID)
		if err == sql.ErrNoRows {
			return catalogerr.NewInvalidArgument(fmt.Sprintf("dataset %q does not exist", binding.Dataset))
		}
		if err != nil {
			return catalogerr.NewInternal(err)
		}

		// column_name is stored as '' rather than NULL when absent: SQLite's
		// UNIQUE index treats NULL as distinct from NULL, which would let a
		// repeated unscoped link insert a duplicate row instead of no-oping.
		if _, err := tx.Exec(
			`INSERT INTO glossary_links (term_id, dataset_id, column_name) VALUES (?, ?, ?)
			 ON CONFLICT(term_id, dataset_id, column_name) DO NOTHING`,
			termID, datasetID, binding.ColumnName,
		); err != nil {
			return catalogerr.NewInternal(fmt.Errorf("link glossary term: %w", err))
		}
		return nil
	})
}

type glossaryDetail struct {
	term     model.GlossaryTerm
	bindings []model.GlossaryBinding
}

// GetGlossaryTerm returns a term's definition plus the datasets (and
// optional columns) it is linked to. Fails with NotFound if absent.
func (s *Store) GetGlossaryTerm(ctx context.Context, termName string) (model.GlossaryTerm, []model.GlossaryBinding, error) {
	result, err := s.View(ctx, func(db *sql.DB) (any, error) {
		var term model.GlossaryTerm
		var domain, owner sql.NullString
		var termID int64
		err := db.QueryRow(
			`SELECT id, term, definition, domain, owner FROM glossary_terms WHERE term = ?`, termName,
		).Scan(&termID, &term.Term, &term.Definition, &domain, &owner)
		if err == sql.ErrNoRows {
			return nil, catalogerr.NewNotFound(termName)
		}
		if err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		term.Domain, term.Owner = domain.String, owner.String

		rows, err := db.Query(
			`SELECT d.name, COALESCE(gl.column_name, '')
			   FROM glossary_links gl JOIN datasets d ON d.id = gl.dataset_id
			  WHERE gl.term_id = ? ORDER BY d.name, gl.column_name`, termID,
		)
		if err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		defer rows.Close()

		bindings := []model.GlossaryBinding{}
		for rows.Next() {
			var b model.GlossaryBinding
			if err := rows.Scan(&b.Dataset, &b.ColumnName); err != nil {
				return nil, catalogerr.NewInternal(err)
			}
			b.Term = term.Term
			bindings = append(bindings, b)
		}
		if err := rows.Err(); err != nil {
			return nil, catalogerr.NewInternal(err)
		}
		return glossaryDetail{term: term, bindings: bindings}, nil
	})
	if err != nil {
		return model.GlossaryTerm{}, nil, err
	}
	detail := result.(glossaryDetail)
	return detail.term, detail.bindings, nil
}

// Package schema owns the catalog's embedded relational layout: the core
// DDL, the full-text index, and the idempotent initialization routine
// that both backends run on every Open (and that the "init" CLI command
// runs directly for --force).
package schema

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/catalogd/catalogd/internal/catalogerr"
)

//go:embed ddl.sql
var ddl string

//go:embed fts.sql
var fts string

// CurrentVersion is the schema_version stamped into catalog_meta by Init.
const CurrentVersion = "1"

// Init prepares db for use. It is idempotent: if catalog_meta already
// reports CurrentVersion, Init does nothing. force drops every catalog
// table first, discarding any existing data, and rebuilds from scratch.
//
// Virtual table DDL (fts.sql) is applied outside the ddl.sql transaction;
// some SQLite builds reject CREATE VIRTUAL TABLE inside a transaction that
// has already touched ordinary tables.
func Init(db *sql.DB, force bool) error {
	if force {
		if err := dropAll(db); err != nil {
			return catalogerr.NewInternal(fmt.Errorf("drop existing schema: %w", err))
		}
	} else {
		version, err := readVersion(db)
		if err == nil && version == CurrentVersion {
			return nil
		}
		if err == nil && version != "" {
			return catalogerr.NewCorrupt(fmt.Sprintf("catalog schema version %q, supported version %q", version, CurrentVersion))
		}
		if err != nil && !isNoSuchTable(err) {
			return catalogerr.NewInternal(fmt.Errorf("probe schema version: %w", err))
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return catalogerr.NewInternal(fmt.Errorf("begin schema tx: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.Exec(ddl); err != nil {
		return catalogerr.NewInternal(fmt.Errorf("apply ddl: %w", err))
	}
	if _, err := tx.Exec(
		`INSERT INTO catalog_meta (id, schema_version, version) VALUES (1, ?, 0)
		   ON CONFLICT(id) DO UPDATE SET schema_version = excluded.schema_version`,
		CurrentVersion,
	); err != nil {
		return catalogerr.NewInternal(fmt.Errorf("seed catalog_meta: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return catalogerr.NewInternal(fmt.Errorf("commit schema tx: %w", err))
	}

	if _, err := db.Exec(fts); err != nil {
		return catalogerr.NewInternal(fmt.Errorf("apply fts schema: %w", err))
	}
	return nil
}

// readVersion returns the schema_version recorded in catalog_meta. It
// returns an error if catalog_meta does not exist yet (fresh file).
func readVersion(db *sql.DB) (string, error) {
	var version string
	err := db.QueryRow(`SELECT schema_version FROM catalog_meta WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return version, err
}

func isNoSuchTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// dropAll removes every table this package owns, in an order that respects
// foreign keys, so force-reinit starts from a clean slate.
func dropAll(db *sql.DB) error {
	stmts := []string{
		`DROP TABLE IF EXISTS dataset_search`,
		`DROP TABLE IF EXISTS glossary_links`,
		`DROP TABLE IF EXISTS glossary_terms`,
		`DROP TABLE IF EXISTS tags`,
		`DROP TABLE IF EXISTS lineage`,
		`DROP TABLE IF EXISTS fields`,
		`DROP TABLE IF EXISTS datasets`,
		`DROP TABLE IF EXISTS catalog_meta`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

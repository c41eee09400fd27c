package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/catalogd/catalogd/internal/backend"
	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/config"
	"github.com/catalogd/catalogd/internal/schema"
)

func newInitCmd(cfg config.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the catalog schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runInit(cmd.Context(), cfg, force); err != nil {
				return fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "drop and recreate an existing schema")
	return cmd
}

func runInit(ctx context.Context, cfg config.Config, force bool) error {
	b, err := backend.Open(ctx, cfg.CatalogPath)
	if err != nil {
		return err
	}

	exists, err := b.Exists(ctx)
	if err != nil {
		return err
	}
	if exists && !force {
		return catalogerr.NewAlreadyExists(cfg.CatalogPath)
	}

	conn, err := b.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close(conn)

	if force {
		if err := schema.Init(conn.DB, true); err != nil {
			return err
		}
	}

	result, err := b.Commit(ctx, conn)
	if err != nil {
		return err
	}
	if result == backend.CommitConflict {
		return catalogerr.NewConflict(1)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogd/catalogd/internal/config"
)

func newStatsCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print catalog-wide counts and the current version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context(), cfg)
			if err != nil {
				return fail(cmd, err)
			}
			s, err := engine.Stats(cmd.Context())
			if err != nil {
				return fail(cmd, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "datasets:\t%d\n", s.Datasets)
			fmt.Fprintf(out, "fields:\t%d\n", s.Fields)
			fmt.Fprintf(out, "lineage_edges:\t%d\n", s.LineageEdges)
			fmt.Fprintf(out, "tags:\t%d\n", s.Tags)
			fmt.Fprintf(out, "glossary_terms:\t%d\n", s.GlossaryTerms)
			fmt.Fprintf(out, "version:\t%d\n", s.Version)
			fmt.Fprintf(out, "last_modified:\t%s\n", s.LastModified.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
	return cmd
}

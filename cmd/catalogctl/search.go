package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catalogd/catalogd/internal/config"
)

func newSearchCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over dataset name, path, domain, and field names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context(), cfg)
			if err != nil {
				return fail(cmd, err)
			}
			results, err := engine.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fail(cmd, err)
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.Name, r.Domain, r.Path)
			}
			return nil
		},
	}
	return cmd
}

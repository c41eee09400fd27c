package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogd/catalogd/internal/config"
	"github.com/catalogd/catalogd/internal/model"
)

func newListCmd(cfg config.Config) *cobra.Command {
	var tenant, domain string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context(), cfg)
			if err != nil {
				return fail(cmd, err)
			}
			datasets, err := engine.List(cmd.Context(), model.ListFilter{Tenant: tenant, Domain: domain})
			if err != nil {
				return fail(cmd, err)
			}
			for _, d := range datasets {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", d.Name, d.Format, d.Domain)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "filter by tenant")
	cmd.Flags().StringVar(&domain, "domain", "", "filter by domain")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catalogd/catalogd/internal/config"
	"github.com/catalogd/catalogd/internal/model"
)

func newShowCmd(cfg config.Config) *cobra.Command {
	var lineage bool
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a dataset record, its fields, and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context(), cfg)
			if err != nil {
				return fail(cmd, err)
			}
			d, err := engine.Get(cmd.Context(), args[0])
			if err != nil {
				return fail(cmd, err)
			}
			printDataset(cmd, d)
			if lineage {
				fmt.Fprintf(cmd.OutOrStdout(), "upstream:\t%s\n", strings.Join(d.Upstream, ", "))
				fmt.Fprintf(cmd.OutOrStdout(), "downstream:\t%s\n", strings.Join(d.Downstream, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&lineage, "lineage", false, "also print immediate upstream/downstream neighbors")
	return cmd
}

func printDataset(cmd *cobra.Command, d model.Dataset) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name:\t%s\n", d.Name)
	fmt.Fprintf(out, "path:\t%s\n", d.Path)
	fmt.Fprintf(out, "format:\t%s\n", d.Format)
	if d.Domain != "" {
		fmt.Fprintf(out, "domain:\t%s\n", d.Domain)
	}
	if d.Owner != "" {
		fmt.Fprintf(out, "owner:\t%s\n", d.Owner)
	}
	fmt.Fprintf(out, "tags:\t%s\n", strings.Join(d.Tags, ", "))
	fmt.Fprintln(out, "fields:")
	for _, f := range d.Fields {
		nullable := ""
		if f.Nullable {
			nullable = " nullable"
		}
		fmt.Fprintf(out, "  %d\t%s\t%s%s\n", f.Ordinal, f.Name, f.DataType, nullable)
	}
}

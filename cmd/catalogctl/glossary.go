package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogd/catalogd/internal/config"
	"github.com/catalogd/catalogd/internal/model"
)

// newGlossaryCmd groups the glossary management commands: glossary
// terms and their dataset links are part of the data model but not
// exposed over HTTP, so the CLI is their only write surface.
func newGlossaryCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "glossary",
		Short: "Manage business glossary terms and their dataset links",
	}
	root.AddCommand(
		newGlossarySetCmd(cfg),
		newGlossaryLinkCmd(cfg),
		newGlossaryShowCmd(cfg),
	)
	return root
}

func newGlossarySetCmd(cfg config.Config) *cobra.Command {
	var definition, domain, owner string
	cmd := &cobra.Command{
		Use:   "set <term>",
		Short: "Create or update a glossary term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fail(cmd, err)
			}
			term := model.GlossaryTerm{
				Term:       args[0],
				Definition: definition,
				Domain:     domain,
				Owner:      owner,
			}
			if err := store.UpsertGlossaryTerm(cmd.Context(), term); err != nil {
				return fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&definition, "definition", "", "term definition (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "owning business domain")
	cmd.Flags().StringVar(&owner, "owner", "", "term owner")
	cmd.MarkFlagRequired("definition")
	return cmd
}

func newGlossaryLinkCmd(cfg config.Config) *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "link <term> <dataset>",
		Short: "Link a glossary term to a dataset, optionally scoped to one column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fail(cmd, err)
			}
			binding := model.GlossaryBinding{Term: args[0], Dataset: args[1], ColumnName: column}
			if err := store.LinkGlossaryTerm(cmd.Context(), binding); err != nil {
				return fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "dataset column this link is scoped to")
	return cmd
}

func newGlossaryShowCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <term>",
		Short: "Print a glossary term's definition and linked datasets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fail(cmd, err)
			}
			term, bindings, err := store.GetGlossaryTerm(cmd.Context(), args[0])
			if err != nil {
				return fail(cmd, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "term:\t%s\n", term.Term)
			fmt.Fprintf(out, "definition:\t%s\n", term.Definition)
			if term.Domain != "" {
				fmt.Fprintf(out, "domain:\t%s\n", term.Domain)
			}
			if term.Owner != "" {
				fmt.Fprintf(out, "owner:\t%s\n", term.Owner)
			}
			fmt.Fprintln(out, "linked datasets:")
			for _, b := range bindings {
				if b.ColumnName != "" {
					fmt.Fprintf(out, "  %s.%s\n", b.Dataset, b.ColumnName)
				} else {
					fmt.Fprintf(out, "  %s\n", b.Dataset)
				}
			}
			return nil
		},
	}
	return cmd
}

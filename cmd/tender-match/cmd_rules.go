package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules in the default rule set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tDESCRIPTION")
			for _, r := range eligibility.NewMatcher().Rules() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Category, r.Description)
			}
			return w.Flush()
		},
	}
}

package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tender-match",
		Short: "Evaluate contractor eligibility for a tender offline",
		Long: `tender-match runs the eligibility rule engine against a contractor
profile and tender requirements stored in YAML or JSON files.

No database or model access is needed. The result is the same MatchResult
the API returns from /api/v1/eligibility/evaluate.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newRulesCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

type evaluateOptions struct {
	profilePath    string
	tenderPath     string
	format         string
	failIneligible bool
}

func newEvaluateCommand() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate --profile <profile.yaml> --tender <tender.yaml>",
		Short: "Match a contractor profile against tender requirements",
		Long: `Evaluate loads a contractor profile and tender requirements and prints
the per-rule results with the overall verdict.

Files may be YAML or JSON. Numeric fields accept numbers or numeric strings;
anything else counts as absent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profilePath, "profile", "p", "", "Contractor profile file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.tenderPath, "tender", "t", "", "Tender requirements file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format: json or table")
	cmd.Flags().BoolVar(&opts.failIneligible, "fail-ineligible", false, "Exit with status 1 when the verdict is INELIGIBLE")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("tender")

	return cmd
}

func runEvaluate(out io.Writer, opts *evaluateOptions) error {
	if opts.format != "json" && opts.format != "table" {
		return fmt.Errorf("unsupported format %q: must be json or table", opts.format)
	}

	var profile eligibility.Profile
	if err := loadFile(opts.profilePath, &profile); err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	var req eligibility.Requirements
	if err := loadFile(opts.tenderPath, &req); err != nil {
		return fmt.Errorf("failed to load tender: %w", err)
	}

	result, err := eligibility.Evaluate(&profile, &req)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printResultTable(out, result)
	}

	if opts.failIneligible && result.OverallVerdict == eligibility.VerdictIneligible {
		failed := make([]string, 0)
		for _, r := range result.FailedRules() {
			failed = append(failed, r.RuleID)
		}
		return &IneligibleError{Failed: failed}
	}
	return nil
}

// loadFile decodes a YAML or JSON document into out. JSON is valid YAML.
func loadFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func printResultTable(out io.Writer, result *eligibility.MatchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tCATEGORY\tMET\tCONFIDENCE\tEXPLANATION")
	for _, r := range result.RuleResults {
		fmt.Fprintf(w, "%s\t%s\t%t\t%.2f\t%s\n", r.RuleID, r.Category, r.Met, r.Confidence, r.Explanation)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nVerdict: %s (confidence %.2f)\n", result.OverallVerdict, result.ConfidenceScore)
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

const profileYAML = `companyName: Acme Infra
turnoverHistory:
  - year: 2023
    amount: "6000000"
  - year: 2022
    amount: 5000000
  - year: 2021
    amount: 4000000
  - year: 2020
    amount: 100
yearsOfExperience: 8
`

const tenderYAML = `turnoverReq: 5000000
experienceReq: "5"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluate_JSON(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", profileYAML)
	tender := writeFile(t, dir, "tender.yaml", tenderYAML)

	out, err := runCLI(t, "evaluate", "--profile", profile, "--tender", tender)
	require.NoError(t, err)

	var result eligibility.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, eligibility.VerdictEligible, result.OverallVerdict)
	require.Len(t, result.RuleResults, 2)
	assert.Equal(t, eligibility.RuleTurnover, result.RuleResults[0].RuleID)
	assert.Equal(t, 5000000.0, result.RuleResults[0].Value.Actual, "only the first three entries are averaged")
	assert.Equal(t, 5.0, result.RuleResults[1].Value.Required)
}

func TestEvaluate_JSONInputFiles(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.json", `{"turnoverHistory":[{"year":2023,"amount":1000000}],"yearsOfExperience":null}`)
	tender := writeFile(t, dir, "tender.json", `{"turnoverReq":"2000000","experienceReq":3}`)

	out, err := runCLI(t, "evaluate", "-p", profile, "-t", tender)
	require.NoError(t, err)

	var result eligibility.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, eligibility.VerdictIneligible, result.OverallVerdict)
	assert.Len(t, result.FailedRules(), 2)
}

func TestEvaluate_Table(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", profileYAML)
	tender := writeFile(t, dir, "tender.yaml", tenderYAML)

	out, err := runCLI(t, "evaluate", "--profile", profile, "--tender", tender, "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "RULE")
	assert.Contains(t, out, "experience_years")
	assert.Contains(t, out, "Verdict: ELIGIBLE (confidence 1.00)")
}

func TestEvaluate_FailIneligible(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", "turnoverHistory: []\n")
	tender := writeFile(t, dir, "tender.yaml", tenderYAML)

	_, err := runCLI(t, "evaluate", "--profile", profile, "--tender", tender)
	require.NoError(t, err, "ineligible is only an error when asked for")

	_, err = runCLI(t, "evaluate", "--profile", profile, "--tender", tender, "--fail-ineligible")
	var ineligible *IneligibleError
	require.True(t, errors.As(err, &ineligible))
	assert.Equal(t, []string{eligibility.RuleTurnover, eligibility.RuleExperience}, ineligible.Failed)
}

func TestEvaluate_Errors(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", profileYAML)
	tender := writeFile(t, dir, "tender.yaml", tenderYAML)

	_, err := runCLI(t, "evaluate", "--profile", profile)
	assert.Error(t, err, "tender flag is required")

	_, err = runCLI(t, "evaluate", "--profile", filepath.Join(dir, "missing.yaml"), "--tender", tender)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load profile")

	_, err = runCLI(t, "evaluate", "--profile", profile, "--tender", tender, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	broken := writeFile(t, dir, "broken.yaml", "turnoverHistory: [\n")
	_, err = runCLI(t, "evaluate", "--profile", broken, "--tender", tender)
	assert.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	out, err := runCLI(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, eligibility.RuleTurnover)
	assert.Contains(t, out, eligibility.RuleExperience)
	assert.NotContains(t, out, eligibility.RuleNetWorth, "net worth is not in the default rule set")
}

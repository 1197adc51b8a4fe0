package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

func TestRiskFlags_Level(t *testing.T) {
	tests := []struct {
		name  string
		flags RiskFlags
		want  string
	}{
		{"no flags", nil, RiskNone},
		{"low only", RiskFlags{{Severity: "LOW"}}, RiskLow},
		{"medium beats low", RiskFlags{{Severity: "LOW"}, {Severity: "MEDIUM"}, {Severity: "LOW"}}, RiskMedium},
		{"high wins", RiskFlags{{Severity: "MEDIUM"}, {Severity: "HIGH"}}, RiskHigh},
		{"unknown severity counts as low", RiskFlags{{Severity: "CRITICAL"}}, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.Level())
		})
	}
}

func TestTender_Requirements(t *testing.T) {
	turnover := 5000000.0
	tender := &Tender{TurnoverReq: &turnover}

	req := tender.Requirements()
	assert.True(t, req.TurnoverReq.Set())
	assert.False(t, req.ExperienceReq.Valid)
	assert.False(t, req.NetWorthReq.Valid)
}

func TestContractorProfile_ToEligibility(t *testing.T) {
	years := 10
	p := &ContractorProfile{
		CompanyName: "Acme",
		TurnoverHistory: TurnoverHistory{
			{Year: 2023, Amount: 6000000},
			{Year: 2022, Amount: 5000000},
		},
		YearsOfExperience: &years,
	}

	out := p.ToEligibility()
	require.Len(t, out.TurnoverHistory, 2)
	assert.Equal(t, float64(6000000), out.TurnoverHistory[0].Amount.Float64())
	assert.Equal(t, float64(10), out.YearsOfExperience.Float64())
	assert.False(t, out.NetWorth.Valid)
}

func TestTurnoverHistory_SortByYearDesc(t *testing.T) {
	h := TurnoverHistory{{Year: 2021}, {Year: 2023}, {Year: 2022}}
	h.SortByYearDesc()
	assert.Equal(t, []int{2023, 2022, 2021}, []int{h[0].Year, h[1].Year, h[2].Year})
}

func TestJSONColumns_ScanValue(t *testing.T) {
	in := RuleResults{{RuleID: eligibility.RuleTurnover, Met: true, Confidence: 1}}
	raw, err := in.Value()
	require.NoError(t, err)

	var out RuleResults
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, in, out)

	var empty Remedies
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)

	var bad KeyDates
	assert.Error(t, bad.Scan(42))
}

func TestNewFinancialMatch(t *testing.T) {
	res := &eligibility.MatchResult{RuleResults: []eligibility.RuleResult{
		{RuleID: eligibility.RuleTurnover, Met: false, Explanation: "Average turnover (1) is less than requirement (2)"},
	}}
	fm := NewFinancialMatch(res, "Turnover falls short of the threshold.")
	require.NotNil(t, fm.TurnoverMet)
	assert.False(t, *fm.TurnoverMet)
	assert.Equal(t, "Turnover falls short of the threshold.", fm.Details)

	none := NewFinancialMatch(&eligibility.MatchResult{}, "No financial criteria.")
	assert.Nil(t, none.TurnoverMet)
	assert.Equal(t, "No financial criteria.", none.Details)
}

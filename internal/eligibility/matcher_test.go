package eligibility

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioProfile() *Profile {
	return &Profile{
		CompanyName: "Acme Infra Pvt Ltd",
		TurnoverHistory: []TurnoverEntry{
			{Year: 2023, Amount: NewNumber(6000000)},
			{Year: 2022, Amount: NewNumber(5000000)},
			{Year: 2021, Amount: NewNumber(4000000)},
		},
		YearsOfExperience: NewNumber(10),
	}
}

func TestMatcher_Scenarios(t *testing.T) {
	m := NewMatcher()

	t.Run("eligible on both rules", func(t *testing.T) {
		res, err := m.Match(scenarioProfile(), &Requirements{
			TurnoverReq:   NewNumber(5000000),
			ExperienceReq: NewNumber(5),
		})
		require.NoError(t, err)
		require.Len(t, res.RuleResults, 2)

		assert.Equal(t, RuleTurnover, res.RuleResults[0].RuleID)
		assert.Equal(t, float64(5000000), res.RuleResults[0].Value.Actual)
		assert.True(t, res.RuleResults[0].Met)
		assert.Equal(t, RuleExperience, res.RuleResults[1].RuleID)
		assert.True(t, res.RuleResults[1].Met)
		assert.Equal(t, VerdictEligible, res.OverallVerdict)
		assert.Equal(t, 1.0, res.ConfidenceScore)
	})

	t.Run("turnover shortfall is ineligible", func(t *testing.T) {
		res, err := m.Match(scenarioProfile(), &Requirements{
			TurnoverReq:   NewNumber(5500000),
			ExperienceReq: NewNumber(5),
		})
		require.NoError(t, err)

		turnover, ok := res.Result(RuleTurnover)
		require.True(t, ok)
		assert.False(t, turnover.Met)
		assert.Equal(t, VerdictIneligible, res.OverallVerdict)
		assert.Len(t, res.FailedRules(), 1)
	})

	t.Run("only experience requested", func(t *testing.T) {
		res, err := m.Match(&Profile{YearsOfExperience: NewNumber(2)}, &Requirements{
			ExperienceReq: NewNumber(3),
		})
		require.NoError(t, err)
		require.Len(t, res.RuleResults, 1)
		assert.Equal(t, RuleExperience, res.RuleResults[0].RuleID)
		assert.False(t, res.RuleResults[0].Met)
		assert.Equal(t, VerdictIneligible, res.OverallVerdict)
	})
}

func TestMatcher_NoApplicableRules(t *testing.T) {
	res, err := NewMatcher().Match(scenarioProfile(), &Requirements{})
	require.NoError(t, err)

	assert.Empty(t, res.RuleResults)
	assert.Equal(t, EmptyRuleSetConfidence, res.ConfidenceScore)
	assert.Equal(t, VerdictEligible, res.OverallVerdict)

	encoded, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"ruleResults":[]`)
}

func TestMatcher_ZeroRequirementIsNotApplicable(t *testing.T) {
	res, err := NewMatcher().Match(&Profile{}, &Requirements{
		TurnoverReq:   NewNumber(0),
		ExperienceReq: ParseNumber("garbage"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.RuleResults)
}

func TestMatcher_MissingInputs(t *testing.T) {
	m := NewMatcher()

	_, err := m.Match(nil, &Requirements{})
	assert.ErrorIs(t, err, ErrMissingProfile)

	_, err = m.Match(&Profile{}, nil)
	assert.ErrorIs(t, err, ErrMissingRequirements)
}

func TestMatcher_EmptyHistoryIsSafe(t *testing.T) {
	res, err := Evaluate(&Profile{TurnoverHistory: []TurnoverEntry{}}, &Requirements{TurnoverReq: NewNumber(100)})
	require.NoError(t, err)
	require.Len(t, res.RuleResults, 1)
	assert.Equal(t, float64(0), res.RuleResults[0].Value.Actual)
	assert.False(t, res.RuleResults[0].Met)
	assert.Equal(t, VerdictIneligible, res.OverallVerdict)
}

func TestMatcher_CustomRules(t *testing.T) {
	m := NewMatcher(TurnoverRule(), ExperienceRule(), NetWorthRule())

	res, err := m.Match(scenarioProfile(), &Requirements{NetWorthReq: NewNumber(1)})
	require.NoError(t, err)
	require.Len(t, res.RuleResults, 1)
	assert.Equal(t, RuleNetWorth, res.RuleResults[0].RuleID)
	assert.Equal(t, 0.5, res.ConfidenceScore)
	assert.Equal(t, VerdictBorderline, res.OverallVerdict)

	alwaysOn := Rule{
		ID:       "documents_present",
		Category: CategoryDocument,
		Evaluate: func(p *Profile, req *Requirements) RuleResult {
			return RuleResult{RuleID: "documents_present", Category: CategoryDocument, Met: true, Confidence: 1}
		},
	}
	res, err = NewMatcher(alwaysOn).Match(&Profile{}, &Requirements{})
	require.NoError(t, err)
	require.Len(t, res.RuleResults, 1)
	assert.Equal(t, "documents_present", res.RuleResults[0].RuleID)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name           string
		results        []RuleResult
		wantVerdict    Verdict
		wantConfidence float64
	}{
		{
			name:           "empty set",
			results:        nil,
			wantVerdict:    VerdictEligible,
			wantConfidence: EmptyRuleSetConfidence,
		},
		{
			name:           "all met at threshold",
			results:        []RuleResult{{Met: true, Confidence: 0.8}},
			wantVerdict:    VerdictEligible,
			wantConfidence: 0.8,
		},
		{
			name:           "all met just below threshold",
			results:        []RuleResult{{Met: true, Confidence: 0.79999}},
			wantVerdict:    VerdictBorderline,
			wantConfidence: 0.79999,
		},
		{
			name:           "mean reaches threshold",
			results:        []RuleResult{{Met: true, Confidence: 1.0}, {Met: true, Confidence: 0.6}},
			wantVerdict:    VerdictEligible,
			wantConfidence: 0.8,
		},
		{
			name:           "one failure with full confidence",
			results:        []RuleResult{{Met: true, Confidence: 1.0}, {Met: false, Confidence: 1.0}},
			wantVerdict:    VerdictIneligible,
			wantConfidence: 1.0,
		},
		{
			name:           "failure with low confidence",
			results:        []RuleResult{{Met: false, Confidence: 0.1}},
			wantVerdict:    VerdictIneligible,
			wantConfidence: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, confidence := Aggregate(tt.results)
			assert.Equal(t, tt.wantVerdict, verdict)
			assert.InDelta(t, tt.wantConfidence, confidence, 1e-12)
		})
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	req := &Requirements{TurnoverReq: NewNumber(5000000), ExperienceReq: NewNumber(12)}
	first, err := Evaluate(scenarioProfile(), req)
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	var wg sync.WaitGroup
	outputs := make([][]byte, 16)
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Evaluate(scenarioProfile(), req)
			if err != nil {
				return
			}
			outputs[i], _ = json.Marshal(res)
		}(i)
	}
	wg.Wait()

	for i, out := range outputs {
		assert.Equal(t, string(want), string(out), "run %d differs", i)
	}
}

func TestProfile_DecodesLooseJSON(t *testing.T) {
	payload := `{
		"companyName": "Acme",
		"licenses": ["class-A"],
		"turnoverHistory": [
			{"year": 2023, "amount": "6000000"},
			{"year": 2022, "amount": 5000000},
			{"year": 2021, "amount": null}
		],
		"yearsOfExperience": "7",
		"netWorth": {"unexpected": true}
	}`

	var p Profile
	require.NoError(t, json.Unmarshal([]byte(payload), &p))

	assert.Equal(t, float64(6000000), p.TurnoverHistory[0].Amount.Float64())
	assert.False(t, p.TurnoverHistory[2].Amount.Valid)
	assert.Equal(t, float64(7), p.YearsOfExperience.Float64())
	assert.True(t, p.NetWorth.Valid)
	assert.Equal(t, float64(0), p.NetWorth.Float64())

	res, err := Evaluate(&p, &Requirements{TurnoverReq: ParseNumber("3000000")})
	require.NoError(t, err)
	assert.InDelta(t, 11000000.0/3, res.RuleResults[0].Value.Actual, 1e-6)
	assert.Contains(t, res.RuleResults[0].Explanation, "exceeds requirement (3000000)")
}

package eligibility

import "fmt"

// Rule identifiers
const (
	RuleTurnover   = "turnover"
	RuleExperience = "experience_years"
	RuleNetWorth   = "net_worth"
)

// turnoverWindow is how many leading turnover entries are averaged
const turnoverWindow = 3

// Rule is a named, independent eligibility predicate. Applies decides whether
// the rule is relevant to a tender; a nil Applies means the rule always runs.
// Evaluate must be pure and must not fail.
type Rule struct {
	ID          string
	Category    Category
	Description string
	Applies     func(req *Requirements) bool
	Evaluate    func(p *Profile, req *Requirements) RuleResult
}

// DefaultRules returns the active rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{TurnoverRule(), ExperienceRule()}
}

// TurnoverRule compares the average of the first three turnover entries
// against the tender's turnover requirement.
func TurnoverRule() Rule {
	return Rule{
		ID:          RuleTurnover,
		Category:    CategoryFinancial,
		Description: "Average annual turnover over the last three years",
		Applies: func(req *Requirements) bool {
			return req.TurnoverReq.Set()
		},
		Evaluate: EvaluateTurnover,
	}
}

// ExperienceRule compares years of experience against the tender's requirement.
func ExperienceRule() Rule {
	return Rule{
		ID:          RuleExperience,
		Category:    CategoryExperience,
		Description: "Years of relevant experience",
		Applies: func(req *Requirements) bool {
			return req.ExperienceReq.Set()
		},
		Evaluate: EvaluateExperience,
	}
}

// NetWorthRule is a placeholder kept as an extension point. It is not part of
// DefaultRules and always passes with reduced confidence.
func NetWorthRule() Rule {
	return Rule{
		ID:          RuleNetWorth,
		Category:    CategoryFinancial,
		Description: "Minimum net worth",
		Applies: func(req *Requirements) bool {
			return req.NetWorthReq.Set()
		},
		Evaluate: EvaluateNetWorth,
	}
}

// EvaluateTurnover averages the first three entries as supplied. An empty
// history averages to 0.
func EvaluateTurnover(p *Profile, req *Requirements) RuleResult {
	required := req.TurnoverReq.Float64()

	window := p.TurnoverHistory
	if len(window) > turnoverWindow {
		window = window[:turnoverWindow]
	}

	var actual float64
	if len(window) > 0 {
		var sum float64
		for _, entry := range window {
			sum += entry.Amount.Float64()
		}
		actual = sum / float64(len(window))
	}

	met := actual >= required
	explanation := fmt.Sprintf("Average turnover (%s) exceeds requirement (%s)", FormatNumber(actual), FormatNumber(required))
	if !met {
		explanation = fmt.Sprintf("Average turnover (%s) is less than requirement (%s)", FormatNumber(actual), FormatNumber(required))
	}

	return RuleResult{
		RuleID:      RuleTurnover,
		Category:    CategoryFinancial,
		Met:         met,
		Confidence:  1.0,
		Explanation: explanation,
		Value:       RuleValue{Required: required, Actual: actual},
	}
}

// EvaluateExperience treats absent values on either side as 0.
func EvaluateExperience(p *Profile, req *Requirements) RuleResult {
	required := req.ExperienceReq.Float64()
	actual := p.YearsOfExperience.Float64()

	met := actual >= required
	explanation := fmt.Sprintf("Experience (%s years) meets requirement (%s years)", FormatNumber(actual), FormatNumber(required))
	if !met {
		explanation = fmt.Sprintf("Experience (%s years) is less than requirement (%s years)", FormatNumber(actual), FormatNumber(required))
	}

	return RuleResult{
		RuleID:      RuleExperience,
		Category:    CategoryExperience,
		Met:         met,
		Confidence:  1.0,
		Explanation: explanation,
		Value:       RuleValue{Required: required, Actual: actual},
	}
}

// EvaluateNetWorth reports the profile's net worth without checking it.
func EvaluateNetWorth(p *Profile, _ *Requirements) RuleResult {
	return RuleResult{
		RuleID:      RuleNetWorth,
		Category:    CategoryFinancial,
		Met:         true,
		Confidence:  0.5,
		Explanation: "Net worth check pending detailed extraction mapping",
		Value:       RuleValue{Required: 0, Actual: p.NetWorth.Float64()},
	}
}

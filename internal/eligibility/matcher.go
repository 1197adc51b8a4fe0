package eligibility

import "errors"

const (
	// EligibleConfidenceThreshold is the minimum mean confidence for ELIGIBLE.
	EligibleConfidenceThreshold = 0.8

	// EmptyRuleSetConfidence is reported when no rule applies to a tender.
	// With nothing to be uncertain about the match classifies as ELIGIBLE.
	EmptyRuleSetConfidence = 1.0
)

var (
	// ErrMissingProfile is returned when Match is called without a profile
	ErrMissingProfile = errors.New("eligibility: contractor profile is required")
	// ErrMissingRequirements is returned when Match is called without tender requirements
	ErrMissingRequirements = errors.New("eligibility: tender requirements are required")
)

// Matcher selects applicable rules, runs them and aggregates a verdict.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher over rules, evaluated in the given order.
// With no rules it uses DefaultRules.
func NewMatcher(rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	registered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Evaluate == nil {
			continue
		}
		registered = append(registered, r)
	}
	return &Matcher{rules: registered}
}

// Rules returns a copy of the registered rules.
func (m *Matcher) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Match evaluates profile against req. The only errors are missing inputs.
func (m *Matcher) Match(profile *Profile, req *Requirements) (*MatchResult, error) {
	if profile == nil {
		return nil, ErrMissingProfile
	}
	if req == nil {
		return nil, ErrMissingRequirements
	}

	results := make([]RuleResult, 0, len(m.rules))
	for _, rule := range m.rules {
		if rule.Applies != nil && !rule.Applies(req) {
			continue
		}
		results = append(results, rule.Evaluate(profile, req))
	}

	verdict, confidence := Aggregate(results)
	return &MatchResult{
		RuleResults:     results,
		OverallVerdict:  verdict,
		ConfidenceScore: confidence,
	}, nil
}

// Aggregate classifies a set of rule results. Any unmet rule is INELIGIBLE;
// otherwise the mean confidence decides between ELIGIBLE and BORDERLINE.
func Aggregate(results []RuleResult) (Verdict, float64) {
	if len(results) == 0 {
		return classify(true, EmptyRuleSetConfidence), EmptyRuleSetConfidence
	}

	allMet := true
	var sum float64
	for _, r := range results {
		if !r.Met {
			allMet = false
		}
		sum += r.Confidence
	}
	confidence := sum / float64(len(results))

	return classify(allMet, confidence), confidence
}

func classify(allMet bool, confidence float64) Verdict {
	switch {
	case !allMet:
		return VerdictIneligible
	case confidence >= EligibleConfidenceThreshold:
		return VerdictEligible
	default:
		return VerdictBorderline
	}
}

var defaultMatcher = NewMatcher()

// Evaluate matches with the default rule set.
func Evaluate(profile *Profile, req *Requirements) (*MatchResult, error) {
	return defaultMatcher.Match(profile, req)
}

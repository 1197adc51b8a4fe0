package eligibility

// Category groups rules by the eligibility dimension they test
type Category string

const (
	CategoryFinancial  Category = "FINANCIAL"
	CategoryTechnical  Category = "TECHNICAL"
	CategoryDocument   Category = "DOCUMENT"
	CategoryExperience Category = "EXPERIENCE"
)

// Verdict is the aggregated outcome of a match
type Verdict string

const (
	VerdictEligible   Verdict = "ELIGIBLE"
	VerdictBorderline Verdict = "BORDERLINE"
	VerdictIneligible Verdict = "INELIGIBLE"
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictEligible, VerdictBorderline, VerdictIneligible:
		return true
	}
	return false
}

// TurnoverEntry is one year of audited or declared turnover
type TurnoverEntry struct {
	Year    int    `json:"year" yaml:"year"`
	Amount  Number `json:"amount" yaml:"amount"`
	Audited bool   `json:"audited,omitempty" yaml:"audited,omitempty"`
}

// Profile is the contractor data the rules read. TurnoverHistory is expected
// most recent first; the rules never re-sort it.
type Profile struct {
	CompanyName       string          `json:"companyName,omitempty" yaml:"companyName,omitempty"`
	Category          string          `json:"category,omitempty" yaml:"category,omitempty"`
	Specializations   []string        `json:"specializations,omitempty" yaml:"specializations,omitempty"`
	TurnoverHistory   []TurnoverEntry `json:"turnoverHistory" yaml:"turnoverHistory"`
	YearsOfExperience Number          `json:"yearsOfExperience" yaml:"yearsOfExperience"`
	NetWorth          Number          `json:"netWorth" yaml:"netWorth"`
}

// Requirements are the structured eligibility thresholds of a tender
type Requirements struct {
	TurnoverReq   Number `json:"turnoverReq" yaml:"turnoverReq"`
	ExperienceReq Number `json:"experienceReq" yaml:"experienceReq"`
	NetWorthReq   Number `json:"netWorthReq" yaml:"netWorthReq"`
}

// RuleValue holds the two values a rule compared
type RuleValue struct {
	Required float64 `json:"required"`
	Actual   float64 `json:"actual"`
}

// RuleResult is the outcome of a single rule
type RuleResult struct {
	RuleID      string    `json:"ruleId"`
	Category    Category  `json:"category"`
	Met         bool      `json:"met"`
	Confidence  float64   `json:"confidence"`
	Explanation string    `json:"explanation"`
	Value       RuleValue `json:"value"`
}

// MatchResult is the full matcher response. RuleResults keeps evaluation order.
type MatchResult struct {
	RuleResults     []RuleResult `json:"ruleResults"`
	OverallVerdict  Verdict      `json:"overallVerdict"`
	ConfidenceScore float64      `json:"confidenceScore"`
}

// FailedRules returns the results that were not met, in order.
func (m *MatchResult) FailedRules() []RuleResult {
	var failed []RuleResult
	for _, r := range m.RuleResults {
		if !r.Met {
			failed = append(failed, r)
		}
	}
	return failed
}

// Result returns the result for ruleID if that rule ran.
func (m *MatchResult) Result(ruleID string) (RuleResult, bool) {
	for _, r := range m.RuleResults {
		if r.RuleID == ruleID {
			return r, true
		}
	}
	return RuleResult{}, false
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

// Verdict is the persisted outcome of matching a profile against a tender.
// The deterministic fields come from the matcher, the narrative fields from
// the explainer or its fallback.
type Verdict struct {
	ID                  uuid.UUID           `json:"id" db:"id"`
	UserID              uuid.UUID           `json:"user_id" db:"user_id"`
	TenderID            uuid.UUID           `json:"tender_id" db:"tender_id"`
	ProfileID           uuid.UUID           `json:"profile_id" db:"profile_id"`
	OverallVerdict      eligibility.Verdict `json:"overall_verdict" db:"overall_verdict"`
	ConfidenceScore     float64             `json:"confidence_score" db:"confidence_score"`
	RuleResults         RuleResults         `json:"rule_results" db:"rule_results"`
	OverallExplanation  string              `json:"overall_explanation" db:"overall_explanation"`
	DetailedReasoning   string              `json:"detailed_reasoning" db:"detailed_reasoning"`
	FinancialMatch      FinancialMatch      `json:"financial_match" db:"financial_match"`
	DocumentGaps        Remedies            `json:"document_gaps" db:"document_gaps"`
	ExplanationFallback bool                `json:"explanation_fallback" db:"explanation_fallback"`
	RulesVersion        string              `json:"rules_version" db:"rules_version"`
	AIModel             string              `json:"ai_model,omitempty" db:"ai_model"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`

	Tender *TenderSummary `json:"tender,omitempty" db:"-"`
}

// TenderSummary is the short tender reference attached to verdict listings
type TenderSummary struct {
	ID           uuid.UUID `json:"id"`
	TenderNumber string    `json:"tender_number,omitempty"`
	FileName     string    `json:"file_name"`
}

// RuleResults represents the ordered rule results as JSON
type RuleResults []eligibility.RuleResult

// Value implements driver.Valuer for RuleResults
func (r RuleResults) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for RuleResults
func (r *RuleResults) Scan(value interface{}) error {
	*r = RuleResults{}
	return scanJSON(value, r, "RuleResults")
}

// FinancialMatch summarises the turnover comparison for display
type FinancialMatch struct {
	TurnoverMet *bool  `json:"turnover_met"`
	Details     string `json:"details"`
}

// Value implements driver.Valuer for FinancialMatch
func (f FinancialMatch) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner for FinancialMatch
func (f *FinancialMatch) Scan(value interface{}) error {
	*f = FinancialMatch{}
	return scanJSON(value, f, "FinancialMatch")
}

// NewFinancialMatch derives the financial summary from a match. Details
// carries the explainer's detailed reasoning (or its fallback text). When the
// turnover rule did not run TurnoverMet stays nil.
func NewFinancialMatch(res *eligibility.MatchResult, details string) FinancialMatch {
	fm := FinancialMatch{Details: details}
	if turnover, ok := res.Result(eligibility.RuleTurnover); ok {
		met := turnover.Met
		fm.TurnoverMet = &met
	}
	return fm
}

// Remedy is a suggested action to close an eligibility gap
type Remedy struct {
	Criterion  string `json:"criterion"`
	Suggestion string `json:"suggestion"`
}

// Remedies represents remedies as JSON
type Remedies []Remedy

// Value implements driver.Valuer for Remedies
func (r Remedies) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for Remedies
func (r *Remedies) Scan(value interface{}) error {
	*r = Remedies{}
	return scanJSON(value, r, "Remedies")
}

// MatchRequest is the payload for running a match
type MatchRequest struct {
	TenderID  string `json:"tender_id" binding:"required"`
	ProfileID string `json:"profile_id" binding:"required"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

// TenderStatus represents the processing state of an uploaded tender
type TenderStatus string

const (
	TenderUploaded   TenderStatus = "UPLOADED"
	TenderProcessing TenderStatus = "PROCESSING"
	TenderExtracted  TenderStatus = "EXTRACTED"
	TenderFailed     TenderStatus = "FAILED"
)

// Risk levels derived from a tender's risk flags
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"
	RiskNone   = "NONE"
)

// Tender represents an uploaded tender document and its extracted data
type Tender struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	UserID            uuid.UUID      `json:"user_id" db:"user_id"`
	FileName          string         `json:"file_name" db:"file_name"`
	FileSize          int64          `json:"file_size" db:"file_size"`
	ContentType       string         `json:"content_type" db:"content_type"`
	Status            TenderStatus   `json:"status" db:"status"`
	ErrorMessage      string         `json:"error_message,omitempty" db:"error_message"`
	TenderNumber      string         `json:"tender_number,omitempty" db:"tender_number"`
	IssuingAuthority  string         `json:"issuing_authority,omitempty" db:"issuing_authority"`
	ProjectValue      *float64       `json:"project_value" db:"project_value"`
	EMDAmount         *float64       `json:"emd_amount" db:"emd_amount"`
	TurnoverReq       *float64       `json:"turnover_req" db:"turnover_req"`
	ExperienceReq     *float64       `json:"experience_req" db:"experience_req"`
	NetWorthReq       *float64       `json:"net_worth_req" db:"net_worth_req"`
	BidDeadline       *time.Time     `json:"bid_deadline" db:"bid_deadline"`
	PrebidDate        *time.Time     `json:"prebid_date" db:"prebid_date"`
	CompletionPeriod  string         `json:"completion_period,omitempty" db:"completion_period"`
	KeyDates          KeyDates       `json:"key_dates" db:"key_dates"`
	RequiredDocuments pq.StringArray `json:"required_documents" db:"required_documents"`
	TechnicalCriteria pq.StringArray `json:"technical_criteria" db:"technical_criteria"`
	FinancialCriteria pq.StringArray `json:"financial_criteria" db:"financial_criteria"`
	RiskFlags         RiskFlags      `json:"risk_flags" db:"risk_flags"`
	SummaryText       string         `json:"summary_text,omitempty" db:"summary_text"`
	Clauses           []Clause       `json:"clauses,omitempty" db:"-"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// Requirements converts the extracted thresholds into matcher input.
// NULL columns stay absent so their rules do not run.
func (t *Tender) Requirements() *eligibility.Requirements {
	return &eligibility.Requirements{
		TurnoverReq:   numberFromPtr(t.TurnoverReq),
		ExperienceReq: numberFromPtr(t.ExperienceReq),
		NetWorthReq:   numberFromPtr(t.NetWorthReq),
	}
}

// RiskLevel returns the most severe risk flag severity, or NONE
func (t *Tender) RiskLevel() string {
	return t.RiskFlags.Level()
}

func numberFromPtr(v *float64) eligibility.Number {
	if v == nil {
		return eligibility.Number{}
	}
	return eligibility.NewNumber(*v)
}

// KeyDate is a named milestone in the tender timeline
type KeyDate struct {
	Event string `json:"event"`
	Date  string `json:"date"`
}

// KeyDates represents key dates as JSON
type KeyDates []KeyDate

// Value implements driver.Valuer for KeyDates
func (k KeyDates) Value() (driver.Value, error) {
	if k == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(k)
}

// Scan implements sql.Scanner for KeyDates
func (k *KeyDates) Scan(value interface{}) error {
	*k = KeyDates{}
	return scanJSON(value, k, "KeyDates")
}

// RiskFlag is a risky clause highlighted during extraction
type RiskFlag struct {
	Flag        string `json:"flag"`
	Severity    string `json:"severity"`
	Clause      string `json:"clause,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// RiskFlags represents risk flags as JSON
type RiskFlags []RiskFlag

// Level returns the highest severity present. Flags without a HIGH or MEDIUM
// severity count as LOW; no flags at all is NONE.
func (r RiskFlags) Level() string {
	if len(r) == 0 {
		return RiskNone
	}
	level := RiskLow
	for _, f := range r {
		switch f.Severity {
		case RiskHigh:
			return RiskHigh
		case RiskMedium:
			level = RiskMedium
		}
	}
	return level
}

// Value implements driver.Valuer for RiskFlags
func (r RiskFlags) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for RiskFlags
func (r *RiskFlags) Scan(value interface{}) error {
	*r = RiskFlags{}
	return scanJSON(value, r, "RiskFlags")
}

// ClauseCategory classifies an extracted clause
type ClauseCategory string

const (
	ClauseEligibility ClauseCategory = "ELIGIBILITY"
	ClauseFinancial   ClauseCategory = "FINANCIAL"
	ClauseTechnical   ClauseCategory = "TECHNICAL"
	ClauseLegal       ClauseCategory = "LEGAL"
	ClauseTimeline    ClauseCategory = "TIMELINE"
	ClausePenalty     ClauseCategory = "PENALTY"
)

// Clause is a discrete passage of tender text
type Clause struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	TenderID      uuid.UUID      `json:"tender_id" db:"tender_id"`
	ClauseNumber  string         `json:"clause_number" db:"clause_number"`
	Title         string         `json:"title" db:"title"`
	Text          string         `json:"text" db:"text"`
	Category      ClauseCategory `json:"category" db:"category"`
	IsMandatory   bool           `json:"is_mandatory" db:"is_mandatory"`
	IsEligibility bool           `json:"is_eligibility" db:"is_eligibility"`
}

// TenderListItem is a tender row in the list view with its latest verdict
type TenderListItem struct {
	ID                 uuid.UUID    `json:"id"`
	FileName           string       `json:"file_name"`
	TenderNumber       string       `json:"tender_number,omitempty"`
	IssuingAuthority   string       `json:"issuing_authority,omitempty"`
	ProjectValue       *float64     `json:"project_value"`
	BidDeadline        *time.Time   `json:"bid_deadline"`
	Status             TenderStatus `json:"status"`
	RiskLevel          string       `json:"risk_level"`
	EligibilityVerdict *string      `json:"eligibility_verdict"`
	CreatedAt          time.Time    `json:"created_at"`
}

// TenderFilters defines filters and paging for listing tenders
type TenderFilters struct {
	UserID      uuid.UUID
	Status      string
	Eligibility string
	Search      string
	DateFrom    *time.Time
	DateTo      *time.Time
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// PageMeta describes a paginated response
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// DashboardStats summarises a user's tenders and verdicts
type DashboardStats struct {
	TotalTenders  int `json:"total_tenders"`
	EligibleCount int `json:"eligible_count"`
	HighRiskCount int `json:"high_risk_count"`
	AvgConfidence int `json:"avg_confidence"`
}

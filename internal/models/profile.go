package models

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

// ContractorProfile represents a contractor's company profile. One per user.
type ContractorProfile struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	CompanyName       string          `json:"company_name" db:"company_name"`
	GSTNumber         string          `json:"gst_number,omitempty" db:"gst_number"`
	PANNumber         string          `json:"pan_number,omitempty" db:"pan_number"`
	Category          string          `json:"category,omitempty" db:"category"`
	Specializations   pq.StringArray  `json:"specializations" db:"specializations"`
	TurnoverHistory   TurnoverHistory `json:"turnover_history" db:"turnover_history"`
	YearsOfExperience *int            `json:"years_of_experience" db:"years_of_experience"`
	NetWorth          *float64        `json:"net_worth" db:"net_worth"`
	PastProjects      PastProjects    `json:"past_projects" db:"past_projects"`
	Licenses          pq.StringArray  `json:"licenses" db:"licenses"`
	Certificates      Certificates    `json:"certificates" db:"certificates"`
	Version           int             `json:"version" db:"version"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// TurnoverRecord is one financial year of turnover
type TurnoverRecord struct {
	Year    int     `json:"year"`
	Amount  float64 `json:"amount"`
	Audited bool    `json:"audited"`
}

// TurnoverHistory represents turnover records as JSON
type TurnoverHistory []TurnoverRecord

// SortByYearDesc orders the history most recent first
func (h TurnoverHistory) SortByYearDesc() {
	sort.SliceStable(h, func(i, j int) bool {
		return h[i].Year > h[j].Year
	})
}

// Value implements driver.Valuer for TurnoverHistory
func (h TurnoverHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner for TurnoverHistory
func (h *TurnoverHistory) Scan(value interface{}) error {
	*h = TurnoverHistory{}
	return scanJSON(value, h, "TurnoverHistory")
}

// PastProject is a completed project used as experience evidence
type PastProject struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Client string  `json:"client"`
	Year   int     `json:"year"`
	Scope  string  `json:"scope,omitempty"`
}

// PastProjects represents past projects as JSON
type PastProjects []PastProject

// Value implements driver.Valuer for PastProjects
func (p PastProjects) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for PastProjects
func (p *PastProjects) Scan(value interface{}) error {
	*p = PastProjects{}
	return scanJSON(value, p, "PastProjects")
}

// Certificate is a registration or quality certificate held by the contractor
type Certificate struct {
	Type     string `json:"type"`
	Number   string `json:"number"`
	IssuedBy string `json:"issued_by,omitempty"`
	ValidTo  string `json:"valid_to,omitempty"`
}

// Certificates represents certificates as JSON
type Certificates []Certificate

// Value implements driver.Valuer for Certificates
func (c Certificates) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for Certificates
func (c *Certificates) Scan(value interface{}) error {
	*c = Certificates{}
	return scanJSON(value, c, "Certificates")
}

// ToEligibility converts the stored profile into matcher input. Missing
// numeric fields stay absent.
func (p *ContractorProfile) ToEligibility() *eligibility.Profile {
	out := &eligibility.Profile{
		CompanyName:     p.CompanyName,
		Category:        p.Category,
		Specializations: []string(p.Specializations),
		TurnoverHistory: make([]eligibility.TurnoverEntry, 0, len(p.TurnoverHistory)),
	}
	for _, rec := range p.TurnoverHistory {
		out.TurnoverHistory = append(out.TurnoverHistory, eligibility.TurnoverEntry{
			Year:    rec.Year,
			Amount:  eligibility.NewNumber(rec.Amount),
			Audited: rec.Audited,
		})
	}
	if p.YearsOfExperience != nil {
		out.YearsOfExperience = eligibility.NewNumber(float64(*p.YearsOfExperience))
	}
	if p.NetWorth != nil {
		out.NetWorth = eligibility.NewNumber(*p.NetWorth)
	}
	return out
}

// ProfileRequest is the create/update payload for a contractor profile
type ProfileRequest struct {
	CompanyName       string          `json:"company_name" binding:"required,min=2"`
	GSTNumber         string          `json:"gst_number"`
	PANNumber         string          `json:"pan_number"`
	Category          string          `json:"category"`
	Specializations   []string        `json:"specializations"`
	TurnoverHistory   TurnoverHistory `json:"turnover_history"`
	YearsOfExperience *int            `json:"years_of_experience" binding:"omitempty,min=0"`
	NetWorth          *float64        `json:"net_worth" binding:"omitempty,min=0"`
	PastProjects      PastProjects    `json:"past_projects"`
	Licenses          []string        `json:"licenses"`
	Certificates      Certificates    `json:"certificates"`
}

// Package extraction turns tender documents into structured tender data:
// document text is sent to a language model in JSON mode and the answer is
// validated against an embedded schema before it is used.
package extraction

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	"github.com/ajharbinger/tender-eligibility/internal/llm"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
	"github.com/ajharbinger/tender-eligibility/internal/models"
)

//go:embed extraction_schema.json
var extractionSchema string

//go:embed prompt.md
var systemPrompt string

// maxPromptText bounds the document text sent to the model
const maxPromptText = 400000

var schemaLoader = gojsonschema.NewStringLoader(extractionSchema)

// ErrInvalidResponse is returned when model output fails schema validation
var ErrInvalidResponse = errors.New("invalid structured response")

// Criterion is a technical or financial eligibility criterion
type Criterion struct {
	Criterion   string             `json:"criterion"`
	Requirement string             `json:"requirement"`
	Weight      eligibility.Number `json:"weight,omitempty"`
}

// ExtractedClause is a clause as returned by the model
type ExtractedClause struct {
	ClauseNumber  string `json:"clauseNumber"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	Category      string `json:"category"`
	IsMandatory   bool   `json:"isMandatory"`
	IsEligibility bool   `json:"isEligibility"`
}

// Extraction is the structured data read from a tender document
type Extraction struct {
	TenderNumber      *string            `json:"tenderNumber"`
	IssuingAuthority  *string            `json:"issuingAuthority"`
	ProjectValue      eligibility.Number `json:"projectValue"`
	EMDAmount         eligibility.Number `json:"emdAmount"`
	TurnoverReq       eligibility.Number `json:"turnoverReq"`
	ExperienceReq     eligibility.Number `json:"experienceReq"`
	NetWorthReq       eligibility.Number `json:"netWorthReq"`
	BidDeadline       *string            `json:"bidDeadline"`
	PrebidDate        *string            `json:"prebidDate"`
	CompletionPeriod  *string            `json:"completionPeriod"`
	KeyDates          []models.KeyDate   `json:"keyDates"`
	RequiredDocuments []string           `json:"requiredDocuments"`
	TechnicalCriteria []Criterion        `json:"technicalCriteria"`
	FinancialCriteria []Criterion        `json:"financialCriteria"`
	RiskFlags         []models.RiskFlag  `json:"riskFlags"`
	SummaryText       *string            `json:"summaryText"`
	ExtractedClauses  []ExtractedClause  `json:"extractedClauses"`
}

// Extractor runs the model extraction
type Extractor struct {
	generator llm.Generator
	logger    logger.Logger
}

// NewExtractor creates an extractor using generator
func NewExtractor(generator llm.Generator, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{generator: generator, logger: log}
}

// Extract sends document text to the model and returns the validated result
func (e *Extractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	if e.generator == nil {
		return nil, errors.New("extractor has no generator")
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextLength {
		return nil, ErrInsufficientText
	}
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}

	prompt := strings.TrimSpace(systemPrompt) + "\n\nDOCUMENT TEXT:\n" + text

	e.logger.Debug("extraction request", map[string]interface{}{
		"text_length": utf8.RuneCountInString(text),
	})

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate extraction: %w", err)
	}

	e.logger.Debug("extraction response", map[string]interface{}{
		"response_length":  len(raw),
		"response_preview": llm.TruncateForLog(raw, 200),
	})

	return ParseExtraction(raw)
}

// ParseExtraction validates and decodes raw model output
func ParseExtraction(raw string) (*Extraction, error) {
	cleaned := llm.ExtractJSON(raw)

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(msgs, "; "))
	}

	var ext Extraction
	if err := json.Unmarshal([]byte(cleaned), &ext); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &ext, nil
}

// Apply copies the extracted fields onto tender and returns its clauses
func (x *Extraction) Apply(tender *models.Tender) []models.Clause {
	tender.TenderNumber = deref(x.TenderNumber)
	tender.IssuingAuthority = deref(x.IssuingAuthority)
	tender.ProjectValue = floatPtr(x.ProjectValue)
	tender.EMDAmount = floatPtr(x.EMDAmount)
	tender.TurnoverReq = floatPtr(x.TurnoverReq)
	tender.ExperienceReq = floatPtr(x.ExperienceReq)
	tender.NetWorthReq = floatPtr(x.NetWorthReq)
	tender.BidDeadline = ParseDate(deref(x.BidDeadline))
	tender.PrebidDate = ParseDate(deref(x.PrebidDate))
	tender.CompletionPeriod = deref(x.CompletionPeriod)
	tender.SummaryText = deref(x.SummaryText)

	tender.KeyDates = models.KeyDates(x.KeyDates)
	tender.RiskFlags = models.RiskFlags(x.RiskFlags)
	tender.RequiredDocuments = append([]string{}, x.RequiredDocuments...)
	tender.TechnicalCriteria = criteriaStrings(x.TechnicalCriteria)
	tender.FinancialCriteria = criteriaStrings(x.FinancialCriteria)

	clauses := make([]models.Clause, 0, len(x.ExtractedClauses))
	for _, c := range x.ExtractedClauses {
		clauses = append(clauses, models.Clause{
			TenderID:      tender.ID,
			ClauseNumber:  c.ClauseNumber,
			Title:         c.Title,
			Text:          c.Text,
			Category:      models.ClauseCategory(c.Category),
			IsMandatory:   c.IsMandatory,
			IsEligibility: c.IsEligibility,
		})
	}
	tender.Clauses = clauses
	return clauses
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

// ParseDate reads the date formats tender documents use. Unknown formats
// yield nil rather than an error.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func criteriaStrings(criteria []Criterion) []string {
	out := make([]string, 0, len(criteria))
	for _, c := range criteria {
		switch {
		case c.Criterion != "" && c.Requirement != "":
			out = append(out, c.Criterion+": "+c.Requirement)
		case c.Criterion != "":
			out = append(out, c.Criterion)
		case c.Requirement != "":
			out = append(out, c.Requirement)
		}
	}
	return out
}

func floatPtr(n eligibility.Number) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

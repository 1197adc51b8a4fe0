// Package explainer turns matcher rule results into a narrative verdict
// explanation with remedies. It never changes the verdict itself.
package explainer

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	"github.com/ajharbinger/tender-eligibility/internal/llm"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
)

// Fallback texts stored when no explanation could be generated
const (
	FallbackExplanation = "Automated explanation unavailable."
	FallbackReasoning   = "Please review the rule results manually."
)

//go:embed explanation_schema.json
var explanationSchema string

//go:embed prompt.md
var promptTemplate string

const maxLogLength = 200

// Remedy is a suggested action for a failed criterion
type Remedy struct {
	Criterion  string `json:"criterion"`
	Suggestion string `json:"suggestion"`
}

// Explanation is the narrative attached to a verdict
type Explanation struct {
	OverallExplanation string   `json:"overallExplanation"`
	Remedies           []Remedy `json:"remedies"`
	DetailedReasoning  string   `json:"detailedReasoning"`
}

// Request carries the inputs of one explanation
type Request struct {
	ProfileSummary     string                   `json:"profileSummary"`
	RequirementSummary string                   `json:"requirementSummary"`
	RuleResults        []eligibility.RuleResult `json:"ruleResults"`
}

// Explainer produces an explanation for a match
type Explainer interface {
	Explain(ctx context.Context, req Request) (*Explanation, error)
}

// Fallback returns the fixed explanation used when generation fails
func Fallback() *Explanation {
	return &Explanation{
		OverallExplanation: FallbackExplanation,
		Remedies:           []Remedy{},
		DetailedReasoning:  FallbackReasoning,
	}
}

// LLMExplainer asks a text generator for a JSON explanation
type LLMExplainer struct {
	generator llm.Generator
	logger    logger.Logger
}

// New creates an LLM-backed explainer
func New(generator llm.Generator, log logger.Logger) *LLMExplainer {
	if log == nil {
		log = logger.NewNop()
	}
	return &LLMExplainer{generator: generator, logger: log}
}

// Explain generates and validates an explanation
func (e *LLMExplainer) Explain(ctx context.Context, req Request) (*Explanation, error) {
	if e.generator == nil {
		return nil, errors.New("explainer has no generator")
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("explanation request", map[string]interface{}{
		"prompt_length": utf8.RuneCountInString(prompt),
		"rule_count":    len(req.RuleResults),
	})

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate explanation: %w", err)
	}

	e.logger.Debug("explanation response", map[string]interface{}{
		"response_length":  utf8.RuneCountInString(raw),
		"response_preview": llm.TruncateForLog(raw, maxLogLength),
	})

	return ParseExplanation(raw)
}

// BuildPrompt renders the explanation prompt for req
func BuildPrompt(req Request) (string, error) {
	results := req.RuleResults
	if results == nil {
		results = []eligibility.RuleResult{}
	}
	resultsJSON, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal rule results: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{PROFILE_SUMMARY}}", strings.TrimSpace(req.ProfileSummary))
	prompt = strings.ReplaceAll(prompt, "{{REQUIREMENT_SUMMARY}}", strings.TrimSpace(req.RequirementSummary))
	prompt = strings.ReplaceAll(prompt, "{{RULE_RESULTS}}", string(resultsJSON))
	return prompt, nil
}

// ParseExplanation validates raw model output against the explanation schema
func ParseExplanation(raw string) (*Explanation, error) {
	cleaned := llm.ExtractJSON(raw)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(explanationSchema),
		gojsonschema.NewStringLoader(cleaned),
	)
	if err != nil {
		return nil, fmt.Errorf("parse explanation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("invalid explanation: %s", strings.Join(msgs, "; "))
	}

	var exp Explanation
	if err := json.Unmarshal([]byte(cleaned), &exp); err != nil {
		return nil, fmt.Errorf("decode explanation: %w", err)
	}
	if exp.Remedies == nil {
		exp.Remedies = []Remedy{}
	}
	return &exp, nil
}

// ExplainOrFallback runs e and substitutes the fallback on any failure.
// The bool result reports whether the fallback was used.
func ExplainOrFallback(ctx context.Context, e Explainer, req Request, log logger.Logger) (*Explanation, bool) {
	if e == nil {
		return Fallback(), true
	}
	exp, err := e.Explain(ctx, req)
	if err != nil {
		if log != nil {
			log.Warn("explanation generation failed, using fallback", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return Fallback(), true
	}
	return exp, false
}

// ProfileSummary renders the contractor facts the explanation may cite
func ProfileSummary(p *eligibility.Profile, pastProjects int) string {
	if p == nil {
		return ""
	}
	category := p.Category
	if category == "" {
		category = "N/A"
	}
	turnover := "missing"
	if len(p.TurnoverHistory) > 0 {
		turnover = "available"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", p.CompanyName)
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Turnover (3yr avg): %s\n", turnover)
	fmt.Fprintf(&b, "Exp Years: %s\n", eligibility.FormatNumber(p.YearsOfExperience.Float64()))
	fmt.Fprintf(&b, "Past Projects: %d", pastProjects)
	return b.String()
}

// RequirementSummary renders the tender thresholds the explanation may cite
func RequirementSummary(req *eligibility.Requirements, projectValue eligibility.Number) string {
	if req == nil {
		req = &eligibility.Requirements{}
	}
	orNA := func(n eligibility.Number) string {
		if !n.Set() {
			return "N/A"
		}
		return eligibility.FormatNumber(n.Float64())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Turnover Req: %s\n", orNA(req.TurnoverReq))
	fmt.Fprintf(&b, "Exp Req: %s years\n", orNA(req.ExperienceReq))
	if req.NetWorthReq.Set() {
		fmt.Fprintf(&b, "Net Worth Req: %s\n", orNA(req.NetWorthReq))
	}
	fmt.Fprintf(&b, "Project Value: %s", orNA(projectValue))
	return b.String()
}

package services

import (
	"context"
	"errors"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
)

// EvaluateRequest is an inline profile and tender for a dry run
type EvaluateRequest struct {
	Profile *eligibility.Profile      `json:"profile"`
	Tender  *eligibility.Requirements `json:"tender"`
}

// RuleInfo describes a rule in the active rule set
type RuleInfo struct {
	ID          string               `json:"id"`
	Category    eligibility.Category `json:"category"`
	Description string               `json:"description"`
}

// eligibilityServiceImpl implements EligibilityService
type eligibilityServiceImpl struct {
	matcher *eligibility.Matcher
}

func newEligibilityService(matcher *eligibility.Matcher) EligibilityService {
	return &eligibilityServiceImpl{matcher: matcher}
}

// Evaluate runs the matcher on inline data without persisting anything
func (s *eligibilityServiceImpl) Evaluate(ctx context.Context, req *EvaluateRequest) (*eligibility.MatchResult, error) {
	result, err := s.matcher.Match(req.Profile, req.Tender)
	switch {
	case errors.Is(err, eligibility.ErrMissingProfile):
		return nil, apperrors.ValidationError("profile is required", err).WithOperation("Evaluate")
	case errors.Is(err, eligibility.ErrMissingRequirements):
		return nil, apperrors.ValidationError("tender is required", err).WithOperation("Evaluate")
	case err != nil:
		return nil, apperrors.InternalError("failed to evaluate eligibility", err).WithOperation("Evaluate")
	}
	return result, nil
}

// Rules lists the rules the matcher evaluates, in order
func (s *eligibilityServiceImpl) Rules() []RuleInfo {
	rules := s.matcher.Rules()
	out := make([]RuleInfo, 0, len(rules))
	for _, r := range rules {
		out = append(out, RuleInfo{ID: r.ID, Category: r.Category, Description: r.Description})
	}
	return out
}

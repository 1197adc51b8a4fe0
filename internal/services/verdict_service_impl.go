package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/explainer"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
	"github.com/ajharbinger/tender-eligibility/internal/metrics"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
	"github.com/ajharbinger/tender-eligibility/pkg/config"
)

// Verdict listing limits
const (
	DefaultVerdictLimit = 50
	MaxVerdictLimit     = 200
)

// verdictServiceImpl implements VerdictService
type verdictServiceImpl struct {
	repos     *repository.Repositories
	cfg       *config.Config
	logger    logger.Logger
	matcher   *eligibility.Matcher
	explainer explainer.Explainer
	aiModel   string
	now       func() time.Time
}

func newVerdictService(deps Dependencies) VerdictService {
	return &verdictServiceImpl{
		repos:     deps.Repos,
		cfg:       deps.Config,
		logger:    deps.Logger,
		matcher:   deps.Matcher,
		explainer: deps.Explainer,
		aiModel:   deps.AIModel,
		now:       time.Now,
	}
}

// Match evaluates a profile against a tender, explains the outcome and
// persists the verdict. Explanation failures never block the verdict.
func (s *verdictServiceImpl) Match(ctx context.Context, caller Caller, req *models.MatchRequest) (*models.Verdict, error) {
	if err := requireWrite(caller, "Match"); err != nil {
		return nil, err
	}
	tenderID, err := parseID(req.TenderID, "tender", "Match")
	if err != nil {
		return nil, err
	}
	profileID, err := parseID(req.ProfileID, "profile", "Match")
	if err != nil {
		return nil, err
	}

	var (
		tender          *models.Tender
		profile         *models.ContractorProfile
		tErr, pErr      error
		group, groupCtx = errgroup.WithContext(ctx)
	)
	group.Go(func() error {
		tender, tErr = s.repos.Tender.GetByID(groupCtx, tenderID)
		return tErr
	})
	group.Go(func() error {
		profile, pErr = s.repos.Profile.GetByID(groupCtx, profileID)
		return pErr
	})
	_ = group.Wait()

	// A lookup cancelled by its sibling's failure must not mask a not-found
	switch {
	case errors.Is(tErr, repository.ErrNotFound):
		return nil, apperrors.NotFound("Tender not found", tErr).WithOperation("Match")
	case errors.Is(pErr, repository.ErrNotFound):
		return nil, apperrors.NotFound("Profile not found", pErr).WithOperation("Match")
	case tErr != nil:
		return nil, apperrors.DatabaseError("failed to load tender", tErr).WithOperation("Match")
	case pErr != nil:
		return nil, apperrors.DatabaseError("failed to load profile", pErr).WithOperation("Match")
	}

	if !caller.IsAdmin() && tender.UserID != caller.UserID && profile.UserID != caller.UserID {
		return nil, apperrors.Forbidden("Access denied to this tender/profile", nil).WithOperation("Match")
	}
	if tender.Status != models.TenderExtracted {
		return nil, apperrors.Conflict("Tender has not been extracted", nil).
			WithDetails("status is " + string(tender.Status)).WithOperation("Match")
	}

	subject := profile.ToEligibility()
	requirements := tender.Requirements()
	result, err := s.matcher.Match(subject, requirements)
	if err != nil {
		return nil, apperrors.InternalError("failed to evaluate eligibility", err).WithOperation("Match")
	}

	exp, fallback := s.explain(ctx, subject, requirements, tender, len(profile.PastProjects), result)

	verdict := &models.Verdict{
		UserID:              caller.UserID,
		TenderID:            tender.ID,
		ProfileID:           profile.ID,
		OverallVerdict:      result.OverallVerdict,
		ConfidenceScore:     result.ConfidenceScore,
		RuleResults:         models.RuleResults(result.RuleResults),
		OverallExplanation:  exp.OverallExplanation,
		DetailedReasoning:   exp.DetailedReasoning,
		FinancialMatch:      models.NewFinancialMatch(result, exp.DetailedReasoning),
		DocumentGaps:        remedies(exp.Remedies),
		ExplanationFallback: fallback,
		RulesVersion:        s.cfg.RulesVersion,
	}
	if !fallback {
		verdict.AIModel = s.aiModel
	}

	if err := s.repos.Verdict.Create(ctx, verdict); err != nil {
		return nil, apperrors.DatabaseError("failed to save verdict", err).WithOperation("Match")
	}

	metrics.ObserveMatch(result)
	if fallback {
		metrics.ExplainerFallbacksTotal.Inc()
	}

	s.logger.Info("Verdict computed", map[string]interface{}{
		"verdict_id": verdict.ID.String(),
		"tender_id":  tender.ID.String(),
		"profile_id": profile.ID.String(),
		"verdict":    string(result.OverallVerdict),
		"confidence": result.ConfidenceScore,
		"rules":      len(result.RuleResults),
		"fallback":   fallback,
	})

	verdict.Tender = &models.TenderSummary{
		ID:           tender.ID,
		TenderNumber: tender.TenderNumber,
		FileName:     tender.FileName,
	}
	return verdict, nil
}

func (s *verdictServiceImpl) explain(ctx context.Context, p *eligibility.Profile, req *eligibility.Requirements,
	tender *models.Tender, pastProjects int, result *eligibility.MatchResult) (*explainer.Explanation, bool) {
	if s.explainer == nil {
		return explainer.Fallback(), true
	}

	projectValue := eligibility.Number{}
	if tender.ProjectValue != nil {
		projectValue = eligibility.NewNumber(*tender.ProjectValue)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()

	return explainer.ExplainOrFallback(ctx, s.explainer, explainer.Request{
		ProfileSummary:     explainer.ProfileSummary(p, pastProjects),
		RequirementSummary: explainer.RequirementSummary(req, projectValue),
		RuleResults:        result.RuleResults,
	}, s.logger)
}

func remedies(in []explainer.Remedy) models.Remedies {
	out := make(models.Remedies, 0, len(in))
	for _, r := range in {
		out = append(out, models.Remedy{Criterion: r.Criterion, Suggestion: r.Suggestion})
	}
	return out
}

// Get returns one of the caller's verdicts. Verdicts of other users are
// reported as not found unless the caller is an admin.
func (s *verdictServiceImpl) Get(ctx context.Context, caller Caller, id string) (*models.Verdict, error) {
	verdictID, err := parseID(id, "verdict", "GetVerdict")
	if err != nil {
		return nil, err
	}
	verdict, err := s.repos.Verdict.GetByID(ctx, verdictID)
	if err != nil {
		return nil, lookupError(err, "Verdict not found", "GetVerdict")
	}
	if !caller.Owns(verdict.UserID) {
		return nil, apperrors.NotFound("Verdict not found", nil).WithOperation("GetVerdict")
	}
	return verdict, nil
}

// List returns the caller's verdicts newest first
func (s *verdictServiceImpl) List(ctx context.Context, caller Caller, limit int) ([]models.Verdict, error) {
	switch {
	case limit <= 0:
		limit = DefaultVerdictLimit
	case limit > MaxVerdictLimit:
		limit = MaxVerdictLimit
	}
	verdicts, err := s.repos.Verdict.ListByUser(ctx, caller.UserID, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list verdicts", err).WithOperation("ListVerdicts")
	}
	return verdicts, nil
}

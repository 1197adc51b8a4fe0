package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
)

const minTurnoverYear = 1950

// profileServiceImpl implements ProfileService
type profileServiceImpl struct {
	repos  *repository.Repositories
	logger logger.Logger
	now    func() time.Time
}

func newProfileService(repos *repository.Repositories, log logger.Logger) ProfileService {
	return &profileServiceImpl{repos: repos, logger: log, now: time.Now}
}

// GetMine returns the caller's own profile
func (s *profileServiceImpl) GetMine(ctx context.Context, caller Caller) (*models.ContractorProfile, error) {
	profile, err := s.repos.Profile.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, lookupError(err, "Profile not found", "GetMine")
	}
	return profile, nil
}

// GetByID returns a profile the caller owns
func (s *profileServiceImpl) GetByID(ctx context.Context, caller Caller, id string) (*models.ContractorProfile, error) {
	profileID, err := parseID(id, "profile", "GetProfile")
	if err != nil {
		return nil, err
	}

	profile, err := s.repos.Profile.GetByID(ctx, profileID)
	if err != nil {
		return nil, lookupError(err, "Profile not found", "GetProfile")
	}
	if !caller.Owns(profile.UserID) {
		return nil, apperrors.Forbidden("Access denied to this profile", nil).WithOperation("GetProfile")
	}
	return profile, nil
}

// Save creates or updates the caller's profile. Turnover history is stored
// most recent year first.
func (s *profileServiceImpl) Save(ctx context.Context, caller Caller, req *models.ProfileRequest) (*models.ContractorProfile, error) {
	if err := requireWrite(caller, "SaveProfile"); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	history := append(models.TurnoverHistory{}, req.TurnoverHistory...)
	history.SortByYearDesc()

	profile := &models.ContractorProfile{
		UserID:            caller.UserID,
		CompanyName:       strings.TrimSpace(req.CompanyName),
		GSTNumber:         strings.ToUpper(strings.TrimSpace(req.GSTNumber)),
		PANNumber:         strings.ToUpper(strings.TrimSpace(req.PANNumber)),
		Category:          strings.TrimSpace(req.Category),
		Specializations:   cleanStrings(req.Specializations),
		TurnoverHistory:   history,
		YearsOfExperience: req.YearsOfExperience,
		NetWorth:          req.NetWorth,
		PastProjects:      append(models.PastProjects{}, req.PastProjects...),
		Licenses:          cleanStrings(req.Licenses),
		Certificates:      append(models.Certificates{}, req.Certificates...),
	}

	if err := s.repos.Profile.Upsert(ctx, profile); err != nil {
		s.logger.Error("Failed to save profile", err, map[string]interface{}{"user_id": caller.UserID.String()})
		return nil, apperrors.DatabaseError("failed to save profile", err).WithOperation("SaveProfile")
	}

	s.logger.Info("Profile saved", map[string]interface{}{
		"profile_id": profile.ID.String(),
		"version":    profile.Version,
	})
	return profile, nil
}

func (s *profileServiceImpl) validate(req *models.ProfileRequest) error {
	if len(strings.TrimSpace(req.CompanyName)) < 2 {
		return apperrors.ValidationError("Company name must be at least 2 characters", nil)
	}

	maxYear := s.now().Year() + 1
	seen := make(map[int]bool, len(req.TurnoverHistory))
	for _, entry := range req.TurnoverHistory {
		if entry.Year < minTurnoverYear || entry.Year > maxYear {
			return apperrors.ValidationError("Invalid turnover year", nil).
				WithDetails(fmt.Sprintf("year %d must be between %d and %d", entry.Year, minTurnoverYear, maxYear))
		}
		if entry.Amount < 0 {
			return apperrors.ValidationError("Turnover amount cannot be negative", nil).
				WithDetails(fmt.Sprintf("year %d", entry.Year))
		}
		if seen[entry.Year] {
			return apperrors.ValidationError("Duplicate turnover year", nil).
				WithDetails(fmt.Sprintf("year %d", entry.Year))
		}
		seen[entry.Year] = true
	}

	if req.YearsOfExperience != nil && *req.YearsOfExperience < 0 {
		return apperrors.ValidationError("Years of experience cannot be negative", nil)
	}
	if req.NetWorth != nil && *req.NetWorth < 0 {
		return apperrors.ValidationError("Net worth cannot be negative", nil)
	}
	return nil
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/services"
)

// mockAuthService implements services.AuthService for testing
type mockAuthService struct {
	users    map[string]string
	register *models.RegisterRequest
}

func (m *mockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if pw, ok := m.users[req.Email]; !ok || pw != req.Password {
		return nil, apperrors.Unauthorized("Invalid credentials", nil)
	}
	return &models.LoginResponse{
		Token:        "access-token",
		RefreshToken: "refresh-token",
		User:         models.User{ID: uuid.New(), Email: req.Email, Role: "CONTRACTOR"},
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (m *mockAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if _, ok := m.users[req.Email]; ok {
		return nil, apperrors.Conflict("User with this email already exists", nil)
	}
	m.register = req
	m.users[req.Email] = req.Password
	return &models.User{ID: uuid.New(), Email: req.Email, Role: "CONTRACTOR"}, nil
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	return nil, apperrors.Unauthorized("Invalid token", nil)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, token string) (*models.LoginResponse, error) {
	if token != "refresh-token" {
		return nil, apperrors.Unauthorized("Invalid refresh token", nil)
	}
	return &models.LoginResponse{Token: "access-token-2", RefreshToken: "refresh-token-2", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// mockProfileService implements services.ProfileService for testing
type mockProfileService struct {
	caller  services.Caller
	saved   *models.ProfileRequest
	profile *models.ContractorProfile
	err     error
}

func (m *mockProfileService) GetMine(ctx context.Context, caller services.Caller) (*models.ContractorProfile, error) {
	m.caller = caller
	return m.profile, m.err
}

func (m *mockProfileService) GetByID(ctx context.Context, caller services.Caller, id string) (*models.ContractorProfile, error) {
	m.caller = caller
	if m.err != nil {
		return nil, m.err
	}
	if m.profile == nil || m.profile.ID.String() != id {
		return nil, apperrors.NotFound("Profile not found", nil)
	}
	return m.profile, nil
}

func (m *mockProfileService) Save(ctx context.Context, caller services.Caller, req *models.ProfileRequest) (*models.ContractorProfile, error) {
	m.caller = caller
	m.saved = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.ContractorProfile{ID: uuid.New(), UserID: caller.UserID, CompanyName: req.CompanyName, Version: 1}, nil
}

// mockTenderService implements services.TenderService for testing
type mockTenderService struct {
	uploaded  services.UploadedDocument
	importURL string
	filters   models.TenderFilters
	err       error
}

func (m *mockTenderService) Upload(ctx context.Context, caller services.Caller, doc services.UploadedDocument) (*models.Tender, error) {
	m.uploaded = doc
	if m.err != nil {
		return nil, m.err
	}
	return &models.Tender{ID: uuid.New(), UserID: caller.UserID, FileName: doc.FileName, Status: models.TenderExtracted}, nil
}

func (m *mockTenderService) Import(ctx context.Context, caller services.Caller, url string) (*models.Tender, error) {
	m.importURL = url
	if m.err != nil {
		return nil, m.err
	}
	return &models.Tender{ID: uuid.New(), UserID: caller.UserID, FileName: "notice.html", Status: models.TenderExtracted}, nil
}

func (m *mockTenderService) Get(ctx context.Context, caller services.Caller, id string) (*models.Tender, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Tender{ID: uuid.MustParse(id), UserID: caller.UserID}, nil
}

func (m *mockTenderService) List(ctx context.Context, caller services.Caller, filters models.TenderFilters) (*services.TenderPage, error) {
	m.filters = filters
	if m.err != nil {
		return nil, m.err
	}
	return &services.TenderPage{
		Data: []models.TenderListItem{{ID: uuid.New(), FileName: "notice.pdf", Status: models.TenderExtracted, RiskLevel: models.RiskNone}},
		Meta: models.PageMeta{Page: 1, PageSize: 10, Total: 1, TotalPages: 1},
	}, nil
}

func (m *mockTenderService) Stats(ctx context.Context, caller services.Caller) (*models.DashboardStats, error) {
	return &models.DashboardStats{TotalTenders: 4, EligibleCount: 2, HighRiskCount: 1, AvgConfidence: 86}, nil
}

// mockVerdictService implements services.VerdictService for testing
type mockVerdictService struct {
	caller services.Caller
	match  *models.MatchRequest
	limit  int
	format services.ExportFormat
	err    error
}

func (m *mockVerdictService) Match(ctx context.Context, caller services.Caller, req *models.MatchRequest) (*models.Verdict, error) {
	m.caller = caller
	m.match = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Verdict{
		ID:              uuid.New(),
		UserID:          caller.UserID,
		OverallVerdict:  eligibility.VerdictEligible,
		ConfidenceScore: 1,
		RuleResults:     models.RuleResults{},
		DocumentGaps:    models.Remedies{},
	}, nil
}

func (m *mockVerdictService) Get(ctx context.Context, caller services.Caller, id string) (*models.Verdict, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Verdict{ID: uuid.MustParse(id), UserID: caller.UserID}, nil
}

func (m *mockVerdictService) List(ctx context.Context, caller services.Caller, limit int) ([]models.Verdict, error) {
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return []models.Verdict{}, nil
}

func (m *mockVerdictService) Export(ctx context.Context, caller services.Caller, format services.ExportFormat) (*services.VerdictExport, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &services.VerdictExport{
		FileName:    "verdicts." + string(format),
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte("id,created_at\n"),
		Count:       0,
	}, nil
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck() error { return s.err }

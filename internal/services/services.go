package services

import (
	"context"
	"database/sql"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	"github.com/ajharbinger/tender-eligibility/internal/explainer"
	"github.com/ajharbinger/tender-eligibility/internal/extraction"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
	"github.com/ajharbinger/tender-eligibility/pkg/config"
)

// Services contains all application services
type Services struct {
	Auth        AuthService
	Profile     ProfileService
	Tender      TenderService
	Verdict     VerdictService
	Eligibility EligibilityService
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	ValidateToken(ctx context.Context, token string) (*models.User, error)
	RefreshToken(ctx context.Context, token string) (*models.LoginResponse, error)
}

// ProfileService manages contractor profiles
type ProfileService interface {
	GetMine(ctx context.Context, caller Caller) (*models.ContractorProfile, error)
	GetByID(ctx context.Context, caller Caller, id string) (*models.ContractorProfile, error)
	Save(ctx context.Context, caller Caller, req *models.ProfileRequest) (*models.ContractorProfile, error)
}

// TenderService manages tender documents and their extraction
type TenderService interface {
	Upload(ctx context.Context, caller Caller, doc UploadedDocument) (*models.Tender, error)
	Import(ctx context.Context, caller Caller, url string) (*models.Tender, error)
	Get(ctx context.Context, caller Caller, id string) (*models.Tender, error)
	List(ctx context.Context, caller Caller, filters models.TenderFilters) (*TenderPage, error)
	Stats(ctx context.Context, caller Caller) (*models.DashboardStats, error)
}

// VerdictService runs and retrieves eligibility verdicts
type VerdictService interface {
	Match(ctx context.Context, caller Caller, req *models.MatchRequest) (*models.Verdict, error)
	Get(ctx context.Context, caller Caller, id string) (*models.Verdict, error)
	List(ctx context.Context, caller Caller, limit int) ([]models.Verdict, error)
	Export(ctx context.Context, caller Caller, format ExportFormat) (*VerdictExport, error)
}

// EligibilityService exposes the rule engine without persistence
type EligibilityService interface {
	Evaluate(ctx context.Context, req *EvaluateRequest) (*eligibility.MatchResult, error)
	Rules() []RuleInfo
}

// TenderExtractor reads structured data from document text
type TenderExtractor interface {
	Extract(ctx context.Context, text string) (*extraction.Extraction, error)
}

// DocumentFetcher downloads a tender notice
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Dependencies are the collaborators shared by the services. Extractor,
// Explainer and Fetcher are optional.
type Dependencies struct {
	Repos     *repository.Repositories
	Config    *config.Config
	Logger    logger.Logger
	Matcher   *eligibility.Matcher
	Extractor TenderExtractor
	Explainer explainer.Explainer
	Fetcher   DocumentFetcher
	AIModel   string
}

// NewServices creates a new Services instance with all dependencies
func NewServices(deps Dependencies) *Services {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Matcher == nil {
		deps.Matcher = eligibility.NewMatcher()
	}
	if deps.Config == nil {
		deps.Config = config.New()
	}

	return &Services{
		Auth:        newAuthService(deps.Repos, deps.Config),
		Profile:     newProfileService(deps.Repos, deps.Logger),
		Tender:      newTenderService(deps),
		Verdict:     newVerdictService(deps),
		Eligibility: newEligibilityService(deps.Matcher),
	}
}

// NewServicesFromDB wires services over a database with no AI collaborators
func NewServicesFromDB(db *sql.DB, cfg *config.Config, log logger.Logger) *Services {
	return NewServices(Dependencies{
		Repos:  repository.NewRepositories(db),
		Config: cfg,
		Logger: log,
	})
}

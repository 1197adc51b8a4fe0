package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/models"
)

// ErrNotFound is wrapped by every repository lookup that matches no row
var ErrNotFound = errors.New("record not found")

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileRepository defines the interface for contractor profile data access
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContractorProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error)
	// Upsert inserts the user's profile or updates it, bumping its version
	Upsert(ctx context.Context, profile *models.ContractorProfile) error
}

// TenderRepository defines the interface for tender data access
type TenderRepository interface {
	Create(ctx context.Context, tender *models.Tender) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tender, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TenderStatus, errMsg string) error
	SaveExtraction(ctx context.Context, tender *models.Tender) error
	ReplaceClauses(ctx context.Context, tenderID uuid.UUID, clauses []models.Clause) error
	List(ctx context.Context, filters models.TenderFilters) ([]models.TenderListItem, int, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error)
}

// VerdictRepository defines the interface for verdict data access
type VerdictRepository interface {
	Create(ctx context.Context, verdict *models.Verdict) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Verdict, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Verdict, error)
}

// TransactionManager defines the interface for database transaction management
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(repos *Repositories) error) error
}

// Repositories groups all repository interfaces
type Repositories struct {
	User    UserRepository
	Profile ProfileRepository
	Tender  TenderRepository
	Verdict VerdictRepository
	Tx      TransactionManager
}

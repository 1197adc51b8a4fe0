package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/models"
)

// profileRepository implements ProfileRepository
type profileRepository struct {
	db dbExecutor
}

// NewProfileRepository creates a new contractor profile repository
func NewProfileRepository(db dbExecutor) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `
	id, user_id, company_name, COALESCE(gst_number, ''), COALESCE(pan_number, ''),
	COALESCE(category, ''), specializations, turnover_history, years_of_experience,
	net_worth, past_projects, licenses, certificates, version, created_at, updated_at`

func scanProfile(row rowScanner) (*models.ContractorProfile, error) {
	p := &models.ContractorProfile{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.CompanyName, &p.GSTNumber, &p.PANNumber,
		&p.Category, &p.Specializations, &p.TurnoverHistory, &p.YearsOfExperience,
		&p.NetWorth, &p.PastProjects, &p.Licenses, &p.Certificates, &p.Version,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// GetByID retrieves a profile by ID
func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContractorProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM contractor_profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetByUserID retrieves the profile owned by a user
func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM contractor_profiles WHERE user_id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Upsert inserts or updates the user's profile. On update the version is
// incremented; ID, Version and timestamps are written back to profile.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.ContractorProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	query := `
		INSERT INTO contractor_profiles (
			id, user_id, company_name, gst_number, pan_number, category, specializations,
			turnover_history, years_of_experience, net_worth, past_projects, licenses,
			certificates, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			gst_number = EXCLUDED.gst_number,
			pan_number = EXCLUDED.pan_number,
			category = EXCLUDED.category,
			specializations = EXCLUDED.specializations,
			turnover_history = EXCLUDED.turnover_history,
			years_of_experience = EXCLUDED.years_of_experience,
			net_worth = EXCLUDED.net_worth,
			past_projects = EXCLUDED.past_projects,
			licenses = EXCLUDED.licenses,
			certificates = EXCLUDED.certificates,
			version = contractor_profiles.version + 1,
			updated_at = NOW()
		RETURNING id, version, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		profile.ID, profile.UserID, profile.CompanyName, profile.GSTNumber, profile.PANNumber,
		profile.Category, profile.Specializations, profile.TurnoverHistory,
		profile.YearsOfExperience, profile.NetWorth, profile.PastProjects, profile.Licenses,
		profile.Certificates,
	).Scan(&profile.ID, &profile.Version, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

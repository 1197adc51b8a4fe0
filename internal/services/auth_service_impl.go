package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/auth"
	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
	"github.com/ajharbinger/tender-eligibility/pkg/config"
)

// authServiceImpl implements AuthService
type authServiceImpl struct {
	repos      *repository.Repositories
	jwtService *auth.JWTService
	hash       func(string) (string, error)
}

// newAuthService creates a new auth service implementation
func newAuthService(repos *repository.Repositories, cfg *config.Config) AuthService {
	return &authServiceImpl{
		repos:      repos,
		jwtService: auth.NewJWTService(cfg.JWTSecret),
		hash:       auth.HashPassword,
	}
}

// Login authenticates a user and returns a token pair
func (s *authServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repos.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials", nil).WithOperation("Login")
		}
		return nil, apperrors.DatabaseError("failed to load user", err).WithOperation("Login")
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid credentials", nil).WithOperation("Login")
	}

	return s.issueTokens(user)
}

// Register creates a new user account. ADMIN cannot be self-assigned.
func (s *authServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = string(models.RoleContractor)
	}
	if !models.ValidRole(role) || role == string(models.RoleAdmin) {
		return nil, apperrors.ValidationError("Invalid role", nil).
			WithDetails("role must be one of CONTRACTOR, CONSULTANT, VIEWER").
			WithOperation("Register")
	}

	existing, err := s.repos.User.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.Conflict("User with this email already exists", nil).WithOperation("Register")
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.DatabaseError("failed to check existing user", err).WithOperation("Register")
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password", err).WithOperation("Register")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashed,
		Role:         role,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, apperrors.DatabaseError("failed to create user", err).WithOperation("Register")
	}

	user.PasswordHash = ""
	return user, nil
}

// ValidateToken validates an access token and returns the user
func (s *authServiceImpl) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid token", err).WithOperation("ValidateToken")
	}

	user, err := s.repos.User.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("User not found", err).WithOperation("ValidateToken")
	}
	user.PasswordHash = ""
	return user, nil
}

// RefreshToken issues a new token pair from a refresh token
func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token", err).WithOperation("RefreshToken")
	}

	user, err := s.repos.User.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("User not found", err).WithOperation("RefreshToken")
	}

	return s.issueTokens(user)
}

func (s *authServiceImpl) issueTokens(user *models.User) (*models.LoginResponse, error) {
	claims := auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	token, expiresAt, err := s.jwtService.GenerateToken(claims)
	if err != nil {
		return nil, apperrors.InternalError("failed to generate token", err)
	}

	refreshToken, _, err := s.jwtService.GenerateRefreshToken(claims)
	if err != nil {
		return nil, apperrors.InternalError("failed to generate refresh token", err)
	}

	return &models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User: models.User{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.UpdatedAt,
		},
		ExpiresAt: expiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

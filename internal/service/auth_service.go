package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/product-links/internal/auth"
	"github.com/spec-kit/product-links/internal/config"
	"github.com/spec-kit/product-links/internal/domain"
	"github.com/spec-kit/product-links/internal/repository"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

// AuthService coordinates staff login and account provisioning.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	StaffRepo repository.StaffRepository
}

// StaffCreateInput describes a new staff account.
type StaffCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.StaffRole
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		staff:      deps.StaffRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the JWT manager for the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// LoginStaff authenticates staff and returns a role-bearing token. Unknown
// emails, wrong passwords and disabled accounts are reported identically.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, domain.AccessToken, error) {
	invalid := apperrors.NewUnauthorized("invalid credentials")

	staff, err := s.staff.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.AccessToken{}, invalid
		}
		return nil, domain.AccessToken{}, err
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, domain.AccessToken{}, invalid
	}
	if !staff.Active {
		return nil, domain.AccessToken{}, invalid
	}

	token, err := s.tokenMgr.GenerateToken(staff)
	if err != nil {
		return nil, domain.AccessToken{}, err
	}
	return staff, token, nil
}

// CreateStaff provisions a staff account.
func (s *AuthService) CreateStaff(ctx context.Context, input StaffCreateInput) (*domain.StaffMember, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if !input.Role.IsValid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}

	if _, err := s.staff.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		return nil, err
	}

	staff := &domain.StaffMember{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// SetStaffActive enables or disables the account registered under email.
// Disabled staff can no longer log in and their outstanding tokens stop
// working at the next request.
func (s *AuthService) SetStaffActive(ctx context.Context, email string, active bool) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"email": email})
		}
		return nil, err
	}
	if staff.Active == active {
		return staff, nil
	}

	staff.Active = active
	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

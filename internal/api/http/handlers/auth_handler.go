package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/product-links/internal/api/dto"
	"github.com/spec-kit/product-links/internal/auth"
	"github.com/spec-kit/product-links/internal/domain"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

// StaffAuthenticator logs staff members in.
type StaffAuthenticator interface {
	LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, domain.AccessToken, error)
}

// AuthHandler exposes staff authentication endpoints.
type AuthHandler struct {
	auth StaffAuthenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth StaffAuthenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /auth/staff/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := dto.BindBody(c, &req); err != nil {
		return err
	}

	staff, token, err := h.auth.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": dto.NewStaffResponse(staff),
			"auth":  dto.AuthResponse{Token: token.Token, ExpiresAt: token.ExpiresAt},
		},
	})
}

// Me handles GET /app/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(principal.Staff)})
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/product-links/internal/domain"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

type staffStub map[string]*domain.StaffMember

func (s staffStub) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	if staff, ok := s[id]; ok {
		return staff, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("jwt-secret", 30)
	staff := &domain.StaffMember{ID: "0b7c", Role: domain.StaffRoleManager}

	token, err := tm.GenerateToken(staff)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, token.ExpiresAt.Sub(token.IssuedAt))

	claims, err := tm.ParseToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "0b7c", claims.RegisteredClaims.Subject)
	assert.Equal(t, domain.StaffRoleManager, claims.Role)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
}

func TestParseTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("jwt-secret", 1)
	token, err := tm.GenerateToken(&domain.StaffMember{ID: "a", Role: domain.StaffRoleViewer})
	require.NoError(t, err)

	_, err = NewTokenManager("other", 1).ParseToken(token.Token)
	assert.Error(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token.Token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hashed, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "correct horse"))
	assert.True(t, IsPasswordMismatch(ComparePassword(hashed, "battery staple")))
}

func newProtectedApp(tm *TokenManager, staff staffStub, roles ...domain.StaffRole) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	mw := NewAuthMiddleware(tm, staff)
	app.Get("/private", mw.Handle, RequireStaffRole(roles...), func(c *fiber.Ctx) error {
		return c.SendString(StaffID(c))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("jwt-secret", 5)
	active := &domain.StaffMember{ID: "s-1", Role: domain.StaffRoleViewer, Active: true}
	disabled := &domain.StaffMember{ID: "s-2", Role: domain.StaffRoleAdmin, Active: false}
	staff := staffStub{active.ID: active, disabled.ID: disabled}

	activeToken, err := tm.GenerateToken(active)
	require.NoError(t, err)
	disabledToken, err := tm.GenerateToken(disabled)
	require.NoError(t, err)
	ghostToken, err := tm.GenerateToken(&domain.StaffMember{ID: "ghost", Role: domain.StaffRoleAdmin})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		roles  []domain.StaffRole
		status int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized},
		{"garbage token", "Bearer abc", nil, http.StatusUnauthorized},
		{"unknown staff", "Bearer " + ghostToken.Token, nil, http.StatusUnauthorized},
		{"disabled staff", "Bearer " + disabledToken.Token, nil, http.StatusUnauthorized},
		{"ok", "Bearer " + activeToken.Token, nil, http.StatusOK},
		{"insufficient role", "Bearer " + activeToken.Token, []domain.StaffRole{domain.StaffRoleAdmin}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newProtectedApp(tm, staff, tc.roles...)
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/product-links/internal/domain"
)

func TestCreateStaffAndLogin(t *testing.T) {
	repo := newFakeStaffRepo()
	svc := NewAuthService(testConfig(), AuthDependencies{StaffRepo: repo})
	ctx := context.Background()

	staff, err := svc.CreateStaff(ctx, StaffCreateInput{
		Name:     "Ada",
		Email:    " Ada@Example.com ",
		Password: "long-password",
		Role:     domain.StaffRoleManager,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", staff.Email)
	assert.NotEqual(t, "long-password", staff.PasswordHash)

	loggedIn, token, err := svc.LoginStaff(ctx, "ADA@example.com", "long-password")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, loggedIn.ID)
	assert.NotEmpty(t, token.Token)
	assert.Equal(t, domain.StaffRoleManager, token.Role)

	claims, err := svc.TokenManager().ParseToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, claims.RegisteredClaims.Subject)
}

func TestCreateStaffValidation(t *testing.T) {
	svc := NewAuthService(testConfig(), AuthDependencies{StaffRepo: newFakeStaffRepo()})
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, StaffCreateInput{Name: "A", Email: "a@x.io", Password: "long-password", Role: "ROOT"})
	requireDomainStatus(t, err, http.StatusBadRequest)

	_, err = svc.CreateStaff(ctx, StaffCreateInput{Name: "A", Email: "a@x.io", Password: "short", Role: domain.StaffRoleViewer})
	requireDomainStatus(t, err, http.StatusBadRequest)

	_, err = svc.CreateStaff(ctx, StaffCreateInput{Name: "A", Email: "a@x.io", Password: "long-password", Role: domain.StaffRoleViewer})
	require.NoError(t, err)
	_, err = svc.CreateStaff(ctx, StaffCreateInput{Name: "B", Email: "A@X.io", Password: "long-password", Role: domain.StaffRoleViewer})
	requireDomainStatus(t, err, http.StatusConflict)
}

func TestLoginStaffFailuresAreUniform(t *testing.T) {
	repo := newFakeStaffRepo()
	svc := NewAuthService(testConfig(), AuthDependencies{StaffRepo: repo})
	ctx := context.Background()

	staff, err := svc.CreateStaff(ctx, StaffCreateInput{Name: "B", Email: "b@x.io", Password: "long-password", Role: domain.StaffRoleViewer})
	require.NoError(t, err)

	_, _, err = svc.LoginStaff(ctx, "nobody@x.io", "long-password")
	unknown := requireDomainStatus(t, err, http.StatusUnauthorized)
	_, _, err = svc.LoginStaff(ctx, "b@x.io", "wrong-password")
	wrong := requireDomainStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, unknown.Message, wrong.Message)

	staff.Active = false
	require.NoError(t, repo.Update(ctx, staff))
	_, _, err = svc.LoginStaff(ctx, "b@x.io", "long-password")
	disabled := requireDomainStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, unknown.Message, disabled.Message)
}

func TestSetStaffActive(t *testing.T) {
	repo := newFakeStaffRepo()
	svc := NewAuthService(testConfig(), AuthDependencies{StaffRepo: repo})
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, StaffCreateInput{Name: "C", Email: "c@x.io", Password: "long-password", Role: domain.StaffRoleManager})
	require.NoError(t, err)

	staff, err := svc.SetStaffActive(ctx, " C@x.io ", false)
	require.NoError(t, err)
	assert.False(t, staff.Active)

	_, _, err = svc.LoginStaff(ctx, "c@x.io", "long-password")
	requireDomainStatus(t, err, http.StatusUnauthorized)

	_, err = svc.SetStaffActive(ctx, "c@x.io", true)
	require.NoError(t, err)
	_, _, err = svc.LoginStaff(ctx, "c@x.io", "long-password")
	require.NoError(t, err)

	_, err = svc.SetStaffActive(ctx, "ghost@x.io", true)
	requireDomainStatus(t, err, http.StatusNotFound)
}

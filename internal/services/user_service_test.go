package services

import (
	"context"
	"testing"

	"notesaas/internal/common"
	"notesaas/internal/models"
	"notesaas/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Provision(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(t)
	svc := NewUserService(f.Users, f.Hasher)

	user, created, err := svc.Provision(ctx, f.Acme, &CreateUserRequest{Email: " New@Acme.test", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new@acme.test", user.Email)
	assert.Equal(t, models.RoleMember, user.Role)
	assert.Equal(t, f.Acme.ID, user.TenantID)
	assert.True(t, user.IsActive)
	assert.NoError(t, f.Hasher.Compare(user.PasswordHash, []byte("secret1")))

	again, created, err := svc.Provision(ctx, f.Globex, &CreateUserRequest{Email: "new@acme.test", Password: "another", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, f.Acme.ID, again.TenantID)
}

func TestUserService_ProvisionValidation(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(t)
	svc := NewUserService(f.Users, f.Hasher)

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"missing email", CreateUserRequest{Password: "secret1"}},
		{"malformed email", CreateUserRequest{Email: "not-an-email", Password: "secret1"}},
		{"short password", CreateUserRequest{Email: "a@acme.test", Password: "12345"}},
		{"unknown role", CreateUserRequest{Email: "a@acme.test", Password: "secret1", Role: "owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Provision(ctx, f.Acme, &tt.req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestUserService_ListTenantUsers(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(t)
	svc := NewUserService(f.Users, f.Hasher)

	users, err := svc.ListTenantUsers(ctx, f.Principal(t, f.GlobexAdmin))
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin@globex.test", users[0].Email)
	assert.Equal(t, "user@globex.test", users[1].Email)

	_, err = svc.ListTenantUsers(ctx, f.Principal(t, f.GlobexMember))
	assert.ErrorIs(t, err, common.ErrForbidden)
}

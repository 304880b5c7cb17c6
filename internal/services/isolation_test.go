package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"notesaas/internal/common"
	"notesaas/internal/models"
	"notesaas/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQuotaCheck(t *testing.T) {
	free := &models.Tenant{Slug: "acme", Subscription: models.PlanFree}
	pro := &models.Tenant{Slug: "globex", Subscription: models.PlanPro}

	tests := []struct {
		name   string
		tenant *models.Tenant
		count  int
		admit  bool
	}{
		{"free empty", free, 0, true},
		{"free below cap", free, 2, true},
		{"free at cap", free, 3, false},
		{"free over cap", free, 5, false},
		{"pro empty", pro, 0, true},
		{"pro large", pro, 10000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := QuotaCheck(tt.tenant, tt.count)
			if tt.admit {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, common.ErrQuotaExceeded)
			var qe *common.QuotaError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.count, qe.Current)
			assert.Equal(t, models.FreeNotesLimit, qe.Limit)
			assert.Equal(t, "free", qe.Subscription)
		})
	}
}

func TestAuthorizeTenantAccess(t *testing.T) {
	acme := &models.Tenant{Slug: "acme"}

	assert.NoError(t, AuthorizeTenantAccess(acme, "acme"))
	assert.ErrorIs(t, AuthorizeTenantAccess(acme, "globex"), common.ErrForbidden)
	assert.ErrorIs(t, AuthorizeTenantAccess(acme, "ACME"), common.ErrForbidden)
	assert.ErrorIs(t, AuthorizeTenantAccess(acme, ""), common.ErrForbidden)
	assert.ErrorIs(t, AuthorizeTenantAccess(nil, "acme"), common.ErrForbidden)
}

func TestCanModify(t *testing.T) {
	creator := &models.User{ID: uuid.New(), Role: models.RoleMember}
	otherMember := &models.User{ID: uuid.New(), Role: models.RoleMember}
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	note := &models.Note{CreatedBy: creator.ID}

	assert.True(t, CanModify(note, creator))
	assert.True(t, CanModify(note, admin))
	assert.False(t, CanModify(note, otherMember))
}

func TestAuthorize(t *testing.T) {
	admin := &models.User{Role: models.RoleAdmin}
	member := &models.User{Role: models.RoleMember}

	assert.True(t, Authorize(admin, models.RoleAdmin))
	assert.True(t, Authorize(member, models.RoleAdmin, models.RoleMember))
	assert.False(t, Authorize(member, models.RoleAdmin))
	assert.False(t, Authorize(admin))
	assert.False(t, Authorize(nil, models.RoleAdmin))

	assert.ErrorIs(t, RequireRole(member, models.RoleAdmin), common.ErrForbidden)
	assert.NoError(t, RequireRole(admin, models.RoleAdmin))
}

func TestTenantResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("populates cache from the repository", func(t *testing.T) {
		f := testhelpers.NewFixture(t)
		resolver := NewTenantResolver(f.Tenants, f.Cache, time.Minute, zap.NewNop())

		tenant, err := resolver.ResolveTenant(ctx, f.AcmeMember)
		require.NoError(t, err)
		assert.Equal(t, f.Acme.ID, tenant.ID)
		assert.True(t, f.Cache.CachedTenant(f.Acme.ID))

		resolver.Invalidate(ctx, f.Acme.ID)
		assert.False(t, f.Cache.CachedTenant(f.Acme.ID))
	})

	t.Run("uses the user's tenant reference only", func(t *testing.T) {
		f := testhelpers.NewFixture(t)
		resolver := NewTenantResolver(f.Tenants, nil, time.Minute, zap.NewNop())

		tenant, err := resolver.ResolveTenant(ctx, f.GlobexAdmin)
		require.NoError(t, err)
		assert.Equal(t, "globex", tenant.Slug)
	})

	t.Run("cache failure falls back to the repository", func(t *testing.T) {
		f := testhelpers.NewFixture(t)
		f.Cache.Err = errors.New("redis down")
		resolver := NewTenantResolver(f.Tenants, f.Cache, time.Minute, zap.NewNop())

		tenant, err := resolver.ResolveTenant(ctx, f.AcmeAdmin)
		require.NoError(t, err)
		assert.Equal(t, f.Acme.ID, tenant.ID)
	})

	t.Run("dangling reference is an integrity fault", func(t *testing.T) {
		f := testhelpers.NewFixture(t)
		resolver := NewTenantResolver(f.Tenants, f.Cache, time.Minute, zap.NewNop())
		orphan := &models.User{ID: uuid.New(), TenantID: uuid.New(), Role: models.RoleMember}

		_, err := resolver.ResolveTenant(ctx, orphan)
		assert.ErrorIs(t, err, common.ErrTenantMissing)
	})
}

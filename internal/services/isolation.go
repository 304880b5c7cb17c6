package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notesaas/internal/caching"
	"notesaas/internal/common"
	"notesaas/internal/models"
	"notesaas/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantResolver finds the tenant a user belongs to. The lookup key is always
// the user's own tenant reference, never anything the client sent.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, user *models.User) (*models.Tenant, error)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

type tenantResolver struct {
	tenants repositories.TenantRepository
	cache   caching.CacheService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewTenantResolver reads through cache when it is non-nil. Cache failures
// never fail a request.
func NewTenantResolver(tenants repositories.TenantRepository, cache caching.CacheService, ttl time.Duration, logger *zap.Logger) TenantResolver {
	return &tenantResolver{tenants: tenants, cache: cache, ttl: ttl, logger: logger}
}

func (r *tenantResolver) ResolveTenant(ctx context.Context, user *models.User) (*models.Tenant, error) {
	if r.cache != nil {
		tenant, err := r.cache.GetTenant(ctx, user.TenantID)
		if err != nil {
			r.logger.Warn("tenant cache read failed", zap.String("tenant_id", user.TenantID.String()), zap.Error(err))
		} else if tenant != nil {
			return tenant, nil
		}
	}

	tenant, err := r.tenants.GetByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			r.logger.Error("user references missing tenant",
				zap.String("user_id", user.ID.String()),
				zap.String("tenant_id", user.TenantID.String()))
			return nil, fmt.Errorf("user %s: %w", user.ID, common.ErrTenantMissing)
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.SetTenant(ctx, tenant, r.ttl); err != nil {
			r.logger.Warn("tenant cache write failed", zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
		}
	}
	return tenant, nil
}

func (r *tenantResolver) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.DeleteTenant(ctx, tenantID); err != nil {
		r.logger.Warn("tenant cache invalidation failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
}

// AuthorizeTenantAccess fails closed unless the requested slug is the caller's own tenant.
func AuthorizeTenantAccess(tenant *models.Tenant, requestedSlug string) error {
	if tenant == nil || requestedSlug == "" || tenant.Slug != requestedSlug {
		return common.Forbidden("access denied to this tenant")
	}
	return nil
}

// QuotaCheck admits a creation when the tenant holding activeCount notes is
// below its plan's cap.
func QuotaCheck(tenant *models.Tenant, activeCount int) error {
	limit := tenant.NotesLimit()
	if limit == nil || activeCount < *limit {
		return nil
	}
	return &common.QuotaError{
		Current:      activeCount,
		Limit:        *limit,
		Subscription: string(tenant.Subscription),
	}
}

// CanModify reports whether actor may update or delete note: its creator or
// an admin. The note is assumed to already be scoped to the actor's tenant.
func CanModify(note *models.Note, actor *models.User) bool {
	return note.CreatedBy == actor.ID || actor.Role == models.RoleAdmin
}

package common

import (
	"context"

	"notesaas/internal/models"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	TenantIDKey  contextKey = "tenant_id"
	PrincipalKey contextKey = "principal"
)

// Principal is the authenticated user together with the tenant resolved from
// the user's own tenant reference.
type Principal struct {
	User   *models.User
	Tenant *models.Tenant
}

func (p *Principal) IsAdmin() bool {
	return p.User.Role == models.RoleAdmin
}

// WithPrincipal stores the principal and its ids on the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	ctx = context.WithValue(ctx, UserIDKey, p.User.ID)
	return context.WithValue(ctx, TenantIDKey, p.Tenant.ID)
}

// GetPrincipalFromContext extracts the authenticated principal from the request context
func GetPrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*Principal)
	return p, ok && p != nil
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetTenantIDFromContext extracts the tenant ID from the request context
func GetTenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return tenantID, ok
}

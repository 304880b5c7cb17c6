package middleware

import (
	"net/http"

	"notesaas/internal/common"
	"notesaas/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuditMiddleware writes an audit entry for every state-changing request made
// by an authenticated principal.
type AuditMiddleware struct {
	logger *zap.Logger
}

func NewAuditMiddleware(base *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{logger: base}
}

func (m *AuditMiddleware) AuditMutations() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return err
			}

			ctx := c.Request().Context()
			p, ok := common.GetPrincipalFromContext(ctx)
			if !ok {
				return err
			}

			status := c.Response().Status
			if err != nil {
				status, _ = common.Classify(err)
			}

			fields := []zap.Field{
				zap.String("tenant_id", p.Tenant.ID.String()),
				zap.String("user_id", p.User.ID.String()),
				zap.String("role", string(p.User.Role)),
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.Int("status", status),
			}
			if id := c.Param("id"); id != "" {
				fields = append(fields, zap.String("resource_id", id))
			}
			if slug := c.Param("slug"); slug != "" {
				fields = append(fields, zap.String("slug", slug))
			}

			logger.FromContext(ctx, m.logger).Named("audit").Info("state change", fields...)
			return err
		}
	}
}

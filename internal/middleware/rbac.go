package middleware

import (
	"notesaas/internal/models"
	"notesaas/internal/services"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct{}

func NewRBACMiddleware() *RBACMiddleware {
	return &RBACMiddleware{}
}

// RequireRole rejects principals whose role is not in roles. It does not check
// which tenant a route addresses; handlers still do that.
func (m *RBACMiddleware) RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := Principal(c)
			if err != nil {
				return err
			}
			if err := services.RequireRole(p.User, roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

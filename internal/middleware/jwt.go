package middleware

import (
	"errors"

	"notesaas/internal/common"
	"notesaas/internal/services"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// PrincipalContextKey is the echo context key the authenticated principal is stored under
const PrincipalContextKey = "principal"

// authFailure marks errors that came out of token authentication so they can
// be told apart from header extraction errors.
type authFailure struct {
	err error
}

func (e *authFailure) Error() string { return e.err.Error() }
func (e *authFailure) Unwrap() error { return e.err }

// JWTMiddleware authenticates the bearer token and stores the principal on
// both the echo context and the request context.
func JWTMiddleware(authService services.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  PrincipalContextKey,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			p, err := authService.Authenticate(c.Request().Context(), auth)
			if err != nil {
				return nil, &authFailure{err: err}
			}
			c.SetRequest(c.Request().WithContext(common.WithPrincipal(c.Request().Context(), p)))
			return p, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var af *authFailure
			if errors.As(err, &af) {
				return af.err
			}
			return common.Unauthenticated("access token required")
		},
	})
}

// Principal returns the authenticated principal or an ErrUnauthenticated
func Principal(c echo.Context) (*common.Principal, error) {
	if p, ok := common.GetPrincipalFromContext(c.Request().Context()); ok {
		return p, nil
	}
	return nil, common.Unauthenticated("access token required")
}

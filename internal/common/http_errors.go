package common

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse represents a standardized error response. Details values are
// always strings; numeric details such as the quota "current" and "limit" are
// decimal strings.
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// Classify maps an error onto its HTTP status and response payload. Messages
// for unknown errors never include the underlying cause.
func Classify(err error) (int, *ErrorResponse) {
	var validationErr *ValidationError
	var quotaErr *QuotaError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed",
			map[string]string{validationErr.Field: validationErr.Message})
	case errors.As(err, &quotaErr):
		return http.StatusForbidden, CreateErrorResponse("QUOTA_EXCEEDED",
			"Notes limit reached for current subscription plan. Upgrade to Pro for unlimited notes", quotaErr.Details())
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", nil)
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", publicMessage(err, ErrUnauthenticated), nil)
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CreateErrorResponse("FORBIDDEN", publicMessage(err, ErrForbidden), nil)
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CreateErrorResponse("NOT_FOUND", publicMessage(err, ErrNotFound), nil)
	case errors.Is(err, ErrAlreadyPro):
		return http.StatusBadRequest, CreateErrorResponse("ALREADY_PRO", "Tenant is already on Pro plan", nil)
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, CreateErrorResponse("RATE_LIMITED", "Too many attempts, try again later", nil)
	case errors.Is(err, ErrTenantMissing):
		return http.StatusInternalServerError, CreateErrorResponse("INTEGRITY_ERROR", "Account configuration error", nil)
	case errors.As(err, &httpErr):
		return httpErr.Code, CreateErrorResponse(codeForStatus(httpErr.Code), httpMessage(httpErr), nil)
	default:
		return http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", "Internal server error", nil)
	}
}

// publicMessage prefers a reason attached with Forbidden/NotFound/Unauthenticated
// and otherwise falls back to the bare category text.
func publicMessage(err, category error) string {
	var re *reasonError
	if errors.As(err, &re) && re.category == category {
		return capitalize(re.reason)
	}
	return capitalize(category.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func httpMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return http.StatusText(he.Code)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "CLIENT_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= http.StatusInternalServerError {
		return "SERVER_ERROR"
	}
	return "CLIENT_ERROR"
}

// HTTPErrorHandler renders every handler error as an ErrorResponse. Server
// side failures are logged with their cause.
func HTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := Classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("code", body.Error.Code),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}

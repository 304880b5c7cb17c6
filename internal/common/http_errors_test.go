package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation error carries field",
			err:        fmt.Errorf("create note: %w", NewValidationError("title", "is required")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantMsg:    "Validation failed",
		},
		{
			name:       "quota error",
			err:        &QuotaError{Current: 3, Limit: 3, Subscription: "free"},
			wantStatus: http.StatusForbidden,
			wantCode:   "QUOTA_EXCEEDED",
		},
		{
			name:       "forbidden keeps reason through wrapping",
			err:        fmt.Errorf("upgrade: %w", Forbidden("access denied to this tenant")),
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
			wantMsg:    "Access denied to this tenant",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("get note: %w", NotFound("note")),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "Note not found",
		},
		{
			name:       "bare unauthenticated",
			err:        ErrUnauthenticated,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
			wantMsg:    "Authentication required",
		},
		{
			name:       "already pro",
			err:        ErrAlreadyPro,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ALREADY_PRO",
		},
		{
			name:       "rate limited",
			err:        ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMITED",
		},
		{
			name:       "tenant missing is an integrity fault",
			err:        fmt.Errorf("resolve tenant: %w", ErrTenantMissing),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTEGRITY_ERROR",
		},
		{
			name:       "echo http error passes through",
			err:        echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"),
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "METHOD_NOT_ALLOWED",
			wantMsg:    "Method Not Allowed",
		},
		{
			name:       "unknown error does not leak",
			err:        errors.New("pq: connection refused to 10.0.0.5"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "SERVER_ERROR",
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Error.Message)
			}
		})
	}
}

func TestClassify_QuotaDetails(t *testing.T) {
	_, body := Classify(fmt.Errorf("create: %w", &QuotaError{Current: 3, Limit: 3, Subscription: "free"}))

	assert.Equal(t, map[string]string{"current": "3", "limit": "3", "subscription": "free"}, body.Error.Details)
}

func TestClassify_ValidationDetails(t *testing.T) {
	_, body := Classify(NewValidationError("content", "cannot exceed 10000 characters"))

	assert.Equal(t, map[string]string{"content": "cannot exceed 10000 characters"}, body.Error.Details)
}

func TestHTTPErrorHandler_WritesPayload(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/notes/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(zap.NewNop())(NotFound("note"), c)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"Note not found"}}`, rec.Body.String())
}

func TestErrorsIs(t *testing.T) {
	assert.ErrorIs(t, &QuotaError{}, ErrQuotaExceeded)
	assert.ErrorIs(t, NewValidationError("f", "m"), ErrValidation)
	assert.ErrorIs(t, Forbidden("x"), ErrForbidden)
	assert.NotErrorIs(t, Forbidden("x"), ErrNotFound)
}

package handlers

import (
	"net/http"

	"notesaas/internal/middleware"
	"notesaas/internal/models"
	"notesaas/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService services.AuthService
}

func NewAuthHandlers(authService services.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MeResponse struct {
	User models.UserProfile `json:"user"`
}

type ValidateTokenResponse struct {
	Valid bool               `json:"valid"`
	User  models.UserProfile `json:"user"`
}

// Login exchanges credentials for a bearer token
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 401 {object} common.ErrorResponse
// @Failure 429 {object} common.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	resp, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user and their tenant
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} common.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandlers) Me(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MeResponse{User: models.NewUserProfile(p.User, p.Tenant)})
}

// Logout is a no-op on the server; clients discard the token.
// @Summary Log out
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandlers) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// @Summary Validate token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ValidateTokenResponse
// @Failure 401 {object} common.ErrorResponse
// @Router /auth/validate-token [post]
func (h *AuthHandlers) ValidateToken(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ValidateTokenResponse{Valid: true, User: models.NewUserProfile(p.User, p.Tenant)})
}

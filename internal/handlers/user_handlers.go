package handlers

import (
	"net/http"

	"notesaas/internal/middleware"
	"notesaas/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandlers handles user-related HTTP requests
type UserHandlers struct {
	userService services.UserService
}

func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

// ListUsers lists the users of the caller's tenant
// @Summary List tenant users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UsersResponse
// @Failure 403 {object} common.ErrorResponse
// @Router /users [get]
func (h *UserHandlers) ListUsers(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	users, err := h.userService.ListTenantUsers(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UsersResponse{Users: users})
}

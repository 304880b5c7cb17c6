package services

import (
	"notesaas/internal/common"
	"notesaas/internal/models"
)

// Authorize reports whether the user holds one of roles. It says nothing
// about which tenant the user may act on.
func Authorize(user *models.User, roles ...models.Role) bool {
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

// RequireRole is Authorize as an error, for use inside service operations.
func RequireRole(user *models.User, roles ...models.Role) error {
	if !Authorize(user, roles...) {
		return common.Forbidden("insufficient permissions")
	}
	return nil
}

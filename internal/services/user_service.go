package services

import (
	"context"
	"fmt"

	"notesaas/internal/common"
	"notesaas/internal/models"
	"notesaas/internal/repositories"
	"notesaas/internal/security"

	"github.com/google/uuid"
)

type UserService interface {
	// Provision creates a user in tenant, or returns the existing user when the email is taken.
	Provision(ctx context.Context, tenant *models.Tenant, req *CreateUserRequest) (user *models.User, created bool, err error)
	// ListTenantUsers lists the members of the principal's own tenant. Admin only.
	ListTenantUsers(ctx context.Context, p *common.Principal) ([]*models.User, error)
}

type CreateUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type userService struct {
	userRepo repositories.UserRepository
	hasher   *security.Hasher
}

func NewUserService(userRepo repositories.UserRepository, hasher *security.Hasher) UserService {
	return &userService{userRepo: userRepo, hasher: hasher}
}

func (s *userService) Provision(ctx context.Context, tenant *models.Tenant, req *CreateUserRequest) (*models.User, bool, error) {
	email, err := common.NormalizeEmail(req.Email)
	if err != nil {
		return nil, false, err
	}
	if len(req.Password) < 6 {
		return nil, false, common.NewValidationError("password", "must be at least 6 characters")
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, false, common.NewValidationError("role", "must be admin or member")
	}

	hash, err := s.hasher.Hash([]byte(req.Password))
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	if !created {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("load user %q: %w", email, err)
		}
		return existing, false, nil
	}
	return user, true, nil
}

func (s *userService) ListTenantUsers(ctx context.Context, p *common.Principal) ([]*models.User, error) {
	if err := RequireRole(p.User, models.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListByTenant(ctx, p.Tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// seed provisions the demo tenants acme and globex, each with an admin and a
// member. Safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"notesaas/internal/config"
	"notesaas/internal/models"
	"notesaas/internal/repositories"
	"notesaas/internal/security"
	"notesaas/internal/services"
	"notesaas/pkg/database"
	"notesaas/pkg/logger"

	"go.uber.org/zap"
)

const seedPassword = "password"

var seedTenants = []services.CreateTenantRequest{
	{Name: "Acme Corporation", Slug: "acme", Subscription: models.PlanFree},
	{Name: "Globex Corporation", Slug: "globex", Subscription: models.PlanFree},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(cfg.DatabaseURL, "up"); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	noteRepo := repositories.NewNoteRepo(pool)
	tenantSvc := services.NewTenantService(repositories.NewTenantRepo(pool), noteRepo, nil, nil, zl)
	userSvc := services.NewUserService(repositories.NewUserRepo(pool), security.NewHasher(cfg.BcryptCost))

	for _, req := range seedTenants {
		tenant, created, err := tenantSvc.Provision(ctx, &req)
		if err != nil {
			zl.Fatal("provision tenant", zap.String("slug", req.Slug), zap.Error(err))
		}
		zl.Info("tenant", zap.String("slug", tenant.Slug), zap.Bool("created", created))

		for _, u := range []struct {
			local string
			role  models.Role
		}{
			{"admin", models.RoleAdmin},
			{"user", models.RoleMember},
		} {
			email := fmt.Sprintf("%s@%s.test", u.local, tenant.Slug)
			user, created, err := userSvc.Provision(ctx, tenant, &services.CreateUserRequest{
				Email:    email,
				Password: seedPassword,
				Role:     u.role,
			})
			if err != nil {
				zl.Fatal("provision user", zap.String("email", email), zap.Error(err))
			}
			zl.Info("user", zap.String("email", user.Email), zap.String("role", string(user.Role)), zap.Bool("created", created))
		}
	}

	fmt.Printf("seed complete; every account uses password %q\n", seedPassword)
}

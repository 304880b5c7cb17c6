package testhelpers

import (
	"context"
	"os"
	"testing"

	"notesaas/internal/models"
	"notesaas/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL and applies migrations. The test
// is skipped when the variable is unset or -short is given.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, database.Migrate(dsn, "up"))

	pool, err := database.NewPool(context.Background(), dsn)
	require.NoError(t, err)

	return &TestDB{
		Pool:    pool,
		Cleanup: pool.Close,
	}
}

// SetupTestTenant inserts a free tenant with a unique slug
func SetupTestTenant(t *testing.T, db *TestDB) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		ID:           uuid.New(),
		Name:         "Test Tenant",
		Slug:         "test-" + uuid.NewString()[:8],
		Subscription: models.PlanFree,
	}
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO tenants (id, name, slug, subscription) VALUES ($1, $2, $3, $4)`,
		tenant.ID, tenant.Name, tenant.Slug, string(tenant.Subscription))
	require.NoError(t, err)
	return tenant
}

// SetupTestUser inserts an active user in tenant
func SetupTestUser(t *testing.T, db *TestDB, tenant *models.Tenant, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        uuid.NewString()[:8] + "@" + tenant.Slug + ".test",
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
	}
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO users (id, tenant_id, email, password_hash, role, is_active) VALUES ($1, $2, $3, $4, $5, TRUE)`,
		user.ID, user.TenantID, user.Email, user.PasswordHash, string(user.Role))
	require.NoError(t, err)
	return user
}

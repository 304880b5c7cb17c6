package repositories

import (
	"context"
	"errors"

	"notesaas/internal/models"
	"notesaas/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TenantRepository interface {
	// Create inserts the tenant unless the slug is taken; created reports which.
	Create(ctx context.Context, tenant *models.Tenant) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	// UpdateSubscription moves the tenant from one plan to another only if it is
	// currently on from. It reports whether a row changed.
	UpdateSubscription(ctx context.Context, id uuid.UUID, from, to models.Plan) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db database.DBTX
}

func NewTenantRepo(db database.DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, name, slug, subscription, created_at, updated_at`

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) (bool, error) {
	query := `
		INSERT INTO tenants (id, name, slug, subscription, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (slug) DO NOTHING
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, tenant.ID, tenant.Name, tenant.Slug, string(tenant.Subscription)).
		Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRow(ctx, query, id))
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return scanTenant(r.db.QueryRow(ctx, query, slug))
}

func (r *tenantRepo) UpdateSubscription(ctx context.Context, id uuid.UUID, from, to models.Plan) (bool, error) {
	query := `
		UPDATE tenants
		SET subscription = $1, updated_at = NOW()
		WHERE id = $2 AND subscription = $3
	`
	tag, err := r.db.Exec(ctx, query, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at, id LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var t models.Tenant
	var plan string
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &plan, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	t.Subscription = models.Plan(plan)
	return &t, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"notesaas/internal/common"
	"notesaas/internal/metrics"
	"notesaas/internal/models"
	"notesaas/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TenantService interface {
	// Provision creates a tenant, or returns the existing one when the slug is taken.
	Provision(ctx context.Context, req *CreateTenantRequest) (tenant *models.Tenant, created bool, err error)
	Get(ctx context.Context, p *common.Principal, slug string) (*models.TenantDetails, error)
	Upgrade(ctx context.Context, p *common.Principal, slug string) (*models.Tenant, error)
	Subscription(ctx context.Context, p *common.Principal, slug string) (*models.SubscriptionStatus, error)
	Export(ctx context.Context, p *common.Principal, slug string) (*models.NoteExport, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	noteRepo   repositories.NoteRepository
	resolver   TenantResolver
	exporter   ExportService
	logger     *zap.Logger
}

func NewTenantService(tenantRepo repositories.TenantRepository, noteRepo repositories.NoteRepository, resolver TenantResolver, exporter ExportService, logger *zap.Logger) TenantService {
	return &tenantService{
		tenantRepo: tenantRepo,
		noteRepo:   noteRepo,
		resolver:   resolver,
		exporter:   exporter,
		logger:     logger,
	}
}

type CreateTenantRequest struct {
	Name         string      `json:"name"`
	Slug         string      `json:"slug"`
	Subscription models.Plan `json:"subscription"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeSlug lowercases and trims a slug and checks its shape.
func NormalizeSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return "", common.NewValidationError("slug", "is required")
	}
	if len(slug) > 50 || !slugPattern.MatchString(slug) {
		return "", common.NewValidationError("slug", "must be lowercase letters, digits and single hyphens")
	}
	return slug, nil
}

func (s *tenantService) Provision(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, bool, error) {
	name, err := common.ValidateRequiredString(req.Name, "name", 100)
	if err != nil {
		return nil, false, err
	}
	slug, err := NormalizeSlug(req.Slug)
	if err != nil {
		return nil, false, err
	}
	plan := req.Subscription
	if plan == "" {
		plan = models.PlanFree
	}
	if !plan.Valid() {
		return nil, false, common.NewValidationError("subscription", "must be free or pro")
	}

	tenant := &models.Tenant{
		ID:           uuid.New(),
		Name:         name,
		Slug:         slug,
		Subscription: plan,
	}

	created, err := s.tenantRepo.Create(ctx, tenant)
	if err != nil {
		return nil, false, fmt.Errorf("create tenant: %w", err)
	}
	if !created {
		existing, err := s.tenantRepo.GetBySlug(ctx, slug)
		if err != nil {
			return nil, false, fmt.Errorf("load tenant %q: %w", slug, err)
		}
		return existing, false, nil
	}
	return tenant, true, nil
}

func (s *tenantService) Get(ctx context.Context, p *common.Principal, slug string) (*models.TenantDetails, error) {
	if err := AuthorizeTenantAccess(p.Tenant, slug); err != nil {
		return nil, err
	}

	count, err := s.noteRepo.CountActive(ctx, p.Tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	return &models.TenantDetails{
		TenantSummary:     models.NewTenantSummary(p.Tenant),
		NotesLimit:        p.Tenant.NotesLimit(),
		CurrentNotesCount: count,
		CanCreateNotes:    p.Tenant.CanCreateNotes(count),
	}, nil
}

func (s *tenantService) Upgrade(ctx context.Context, p *common.Principal, slug string) (*models.Tenant, error) {
	if err := AuthorizeTenantAccess(p.Tenant, slug); err != nil {
		return nil, err
	}
	if err := RequireRole(p.User, models.RoleAdmin); err != nil {
		return nil, err
	}

	// the principal's copy may come from cache
	tenant, err := s.tenantRepo.GetByID(ctx, p.Tenant.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.ErrTenantMissing
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if tenant.Subscription == models.PlanPro {
		return nil, common.ErrAlreadyPro
	}

	changed, err := s.tenantRepo.UpdateSubscription(ctx, tenant.ID, models.PlanFree, models.PlanPro)
	if err != nil {
		return nil, fmt.Errorf("upgrade tenant: %w", err)
	}
	if !changed {
		return nil, common.ErrAlreadyPro
	}
	s.resolver.Invalidate(ctx, tenant.ID)

	tenant.Subscription = models.PlanPro
	metrics.TenantUpgrades.Inc()
	s.logger.Info("tenant upgraded",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
		zap.String("by", p.User.ID.String()))
	return tenant, nil
}

func (s *tenantService) Subscription(ctx context.Context, p *common.Principal, slug string) (*models.SubscriptionStatus, error) {
	if err := AuthorizeTenantAccess(p.Tenant, slug); err != nil {
		return nil, err
	}

	count, err := s.noteRepo.CountActive(ctx, p.Tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	return &models.SubscriptionStatus{
		Plan:              p.Tenant.Subscription,
		NotesLimit:        p.Tenant.NotesLimit(),
		CurrentNotesCount: count,
		CanCreateNotes:    p.Tenant.CanCreateNotes(count),
		CanUpgrade:        p.Tenant.Subscription == models.PlanFree && p.IsAdmin(),
	}, nil
}

func (s *tenantService) Export(ctx context.Context, p *common.Principal, slug string) (*models.NoteExport, error) {
	if err := AuthorizeTenantAccess(p.Tenant, slug); err != nil {
		return nil, err
	}
	if err := RequireRole(p.User, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.exporter.ExportTenant(ctx, p.Tenant, ExportTriggerManual)
}

package handlers

import (
	"net/http"

	"notesaas/internal/middleware"
	"notesaas/internal/models"
	"notesaas/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHandlers handles the slug-addressed tenant routes. Every route checks
// the slug against the caller's own tenant before doing anything else.
type TenantHandlers struct {
	tenantService services.TenantService
}

func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

// GetTenant
// @Summary Tenant details with quota usage
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Tenant slug"
// @Success 200 {object} TenantResponse
// @Failure 403 {object} common.ErrorResponse
// @Router /tenants/{slug} [get]
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	details, err := h.tenantService.Get(c.Request().Context(), p, c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TenantResponse{Tenant: details})
}

// UpgradeTenant
// @Summary Upgrade the tenant to the pro plan
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Tenant slug"
// @Success 200 {object} UpgradeResponse
// @Failure 400 {object} common.ErrorResponse "already pro"
// @Failure 403 {object} common.ErrorResponse
// @Router /tenants/{slug}/upgrade [post]
func (h *TenantHandlers) UpgradeTenant(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenantService.Upgrade(c.Request().Context(), p, c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UpgradeResponse{
		Message: "Tenant successfully upgraded to Pro plan",
		Tenant: UpgradedTenant{
			TenantSummary: models.NewTenantSummary(tenant),
			NotesLimit:    tenant.NotesLimit(),
		},
	})
}

// GetSubscription
// @Summary Subscription status
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Tenant slug"
// @Success 200 {object} SubscriptionResponse
// @Failure 403 {object} common.ErrorResponse
// @Router /tenants/{slug}/subscription [get]
func (h *TenantHandlers) GetSubscription(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	status, err := h.tenantService.Subscription(c.Request().Context(), p, c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SubscriptionResponse{Subscription: status})
}

// ExportNotes
// @Summary Export active notes to object storage
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Tenant slug"
// @Success 201 {object} ExportResponse
// @Failure 403 {object} common.ErrorResponse
// @Router /tenants/{slug}/export [post]
func (h *TenantHandlers) ExportNotes(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	export, err := h.tenantService.Export(c.Request().Context(), p, c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ExportResponse{Message: "Export created", Export: export})
}

package server

import (
	"notesaas/internal/caching"
	"notesaas/internal/common"
	"notesaas/internal/handlers"
	"notesaas/internal/metrics"
	"notesaas/internal/middleware"
	"notesaas/internal/models"
	"notesaas/internal/services"
	"notesaas/pkg/logger"

	_ "notesaas/docs"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

// Deps are the services the HTTP surface is built from. Cache may be nil.
type Deps struct {
	Logger  *zap.Logger
	DB      handlers.Pinger
	Cache   caching.CacheService
	Auth    services.AuthService
	Notes   services.NoteService
	Tenants services.TenantService
	Users   services.UserService
	Version string
}

func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = common.HTTPErrorHandler(d.Logger)

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(logger.RequestID(d.Logger))
	e.Use(metrics.Middleware())
	e.Use(logger.Middleware(d.Logger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, logger.RequestIDHeader},
		ExposeHeaders: []string{logger.RequestIDHeader},
	}))

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	healthHandlers := handlers.NewHealthHandlers(d.DB, d.Cache, d.Version)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authn := middleware.JWTMiddleware(d.Auth)
	audit := middleware.NewAuditMiddleware(d.Logger).AuditMutations()
	rbac := middleware.NewRBACMiddleware()
	adminOnly := rbac.RequireRole(models.RoleAdmin)

	authHandlers := handlers.NewAuthHandlers(d.Auth)
	noteHandlers := handlers.NewNoteHandlers(d.Notes)
	tenantHandlers := handlers.NewTenantHandlers(d.Tenants)
	userHandlers := handlers.NewUserHandlers(d.Users)

	v1 := versionMiddleware.VersionRoute(e, "v1")

	auth := v1.Group("/auth")
	auth.POST("/login", authHandlers.Login)
	auth.GET("/me", authHandlers.Me, authn)
	auth.POST("/logout", authHandlers.Logout, authn)
	auth.POST("/validate-token", authHandlers.ValidateToken, authn)

	notes := v1.Group("/notes", authn, audit)
	notes.POST("", noteHandlers.CreateNote)
	notes.GET("", noteHandlers.ListNotes)
	notes.GET("/stats/overview", noteHandlers.NoteStats)
	notes.GET("/:id", noteHandlers.GetNote)
	notes.PUT("/:id", noteHandlers.UpdateNote)
	notes.DELETE("/:id", noteHandlers.DeleteNote)

	tenants := v1.Group("/tenants", authn, audit)
	tenants.GET("/:slug", tenantHandlers.GetTenant)
	tenants.GET("/:slug/subscription", tenantHandlers.GetSubscription)
	tenants.POST("/:slug/upgrade", tenantHandlers.UpgradeTenant, adminOnly)
	tenants.POST("/:slug/export", tenantHandlers.ExportNotes, adminOnly)

	users := v1.Group("/users", authn)
	users.GET("", userHandlers.ListUsers, adminOnly)

	return e
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"notesaas/internal/caching"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db       Pinger
	cacheSvc caching.CacheService
	version  string
	started  time.Time
}

// NewHealthHandlers creates the health handlers. cacheSvc may be nil when no
// Redis is configured.
func NewHealthHandlers(db Pinger, cacheSvc caching.CacheService, version string) *HealthHandlers {
	return &HealthHandlers{
		db:       db,
		cacheSvc: cacheSvc,
		version:  version,
		started:  time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

func (h *HealthHandlers) status(status string) *HealthStatus {
	return &HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Truncate(time.Second).String(),
		Version:   h.version,
	}
}

// HealthCheck is the liveness probe
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health [get]
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status("healthy"))
}

// ReadinessCheck reports 503 while the database is unreachable. A Redis
// outage only degrades the service since caching and rate limiting fail open.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health/ready [get]
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	health := h.status("ready")
	health.Services = make(map[string]string)
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		health.Services["database"] = "unhealthy"
		health.Status = "not_ready"
		code = http.StatusServiceUnavailable
	} else {
		health.Services["database"] = "healthy"
	}

	switch {
	case h.cacheSvc == nil:
		health.Services["redis"] = "disabled"
	case h.cacheSvc.Ping(ctx) != nil:
		health.Services["redis"] = "unhealthy"
		if code == http.StatusOK {
			health.Status = "degraded"
		}
	default:
		health.Services["redis"] = "healthy"
	}

	return c.JSON(code, health)
}

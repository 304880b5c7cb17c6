package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notesaas/internal/caching"
	"notesaas/internal/config"
	"notesaas/internal/jobs/background"
	"notesaas/internal/repositories"
	"notesaas/internal/security"
	"notesaas/internal/server"
	"notesaas/internal/services"
	"notesaas/pkg/database"
	"notesaas/pkg/logger"

	"go.uber.org/zap"
)

const version = "1.0.0"

// @title Notes SaaS API
// @version 1.0
// @description Multi-tenant notes with per-plan quotas.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
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

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL, "up"); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		zl.Info("database migrations applied")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repositories.NewTenantRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	noteRepo := repositories.NewNoteRepo(pool)

	var cacheSvc caching.CacheService
	if cfg.RedisAddr != "" {
		redisClient := caching.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = redisClient.Close() }()
		cacheSvc = caching.NewRedisCacheService(redisClient)
		if err := cacheSvc.Ping(ctx); err != nil {
			zl.Warn("redis unavailable, continuing without cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	} else {
		zl.Warn("REDIS_ADDR empty, tenant cache and login rate limiting disabled")
	}

	minioSvc, err := services.NewMinioService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL(), time.Now)
	resolver := services.NewTenantResolver(tenantRepo, cacheSvc, cfg.TenantCacheDuration(), zl)
	exporter := services.NewExportService(noteRepo, minioSvc, cfg.MinioBucket, cfg.ExportURLDuration(), zl)

	authSvc := services.NewAuthService(userRepo, resolver, tokens, hasher, cacheSvc,
		services.RateLimitConfig{Limit: cfg.LoginRateLimit, Window: cfg.LoginWindow()}, zl)
	noteSvc := services.NewNoteService(noteRepo, cfg.StrictQuota(), zl)
	tenantSvc := services.NewTenantService(tenantRepo, noteRepo, resolver, exporter, zl)
	userSvc := services.NewUserService(userRepo, hasher)

	scheduler, err := background.NewJobScheduler(tenantRepo, noteRepo, exporter, background.Config{
		QuotaAuditEvery: cfg.QuotaAuditEvery(),
		ExportCron:      cfg.ExportCron,
	}, zl)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			zl.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	e := server.NewRouter(server.Deps{
		Logger:  zl,
		DB:      pool,
		Cache:   cacheSvc,
		Auth:    authSvc,
		Notes:   noteSvc,
		Tenants: tenantSvc,
		Users:   userSvc,
		Version: version,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		zl.Info("notesaas server starting",
			zap.String("version", version),
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("quota_mode", cfg.QuotaMode))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

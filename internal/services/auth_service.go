package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notesaas/internal/caching"
	"notesaas/internal/common"
	"notesaas/internal/metrics"
	"notesaas/internal/models"
	"notesaas/internal/repositories"
	"notesaas/internal/security"

	"go.uber.org/zap"
)

// AuthService handles credential login and bearer token authentication
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	// Authenticate turns a bearer token into the acting user and their tenant.
	Authenticate(ctx context.Context, token string) (*common.Principal, error)
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

type authService struct {
	users     repositories.UserRepository
	resolver  TenantResolver
	tokens    TokenService
	hasher    *security.Hasher
	cacheSvc  caching.CacheService
	rateLimit RateLimitConfig
	logger    *zap.Logger
}

// NewAuthService creates the authentication service. cacheSvc may be nil,
// which disables login rate limiting.
func NewAuthService(users repositories.UserRepository, resolver TenantResolver, tokens TokenService, hasher *security.Hasher, cacheSvc caching.CacheService, rateLimit RateLimitConfig, logger *zap.Logger) AuthService {
	return &authService{
		users:     users,
		resolver:  resolver,
		tokens:    tokens,
		hasher:    hasher,
		cacheSvc:  cacheSvc,
		rateLimit: rateLimit,
		logger:    logger,
	}
}

const invalidCredentials = "invalid credentials"

func (s *authService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, common.NewValidationError("email", "is required")
	}
	if password == "" {
		return nil, common.NewValidationError("password", "is required")
	}

	if s.limited(ctx, email) {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginRateLimited).Inc()
		return nil, common.ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("load user: %w", err)
		}
		s.hasher.CompareDummy([]byte(password))
		metrics.LoginAttempts.WithLabelValues(metrics.LoginFailure).Inc()
		return nil, common.Unauthenticated(invalidCredentials)
	}

	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil || !user.IsActive {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginFailure).Inc()
		return nil, common.Unauthenticated(invalidCredentials)
	}

	tenant, err := s.resolver.ResolveTenant(ctx, user)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.cacheSvc != nil {
		if err := s.cacheSvc.ResetRateLimit(ctx, loginKey(email)); err != nil {
			s.logger.Warn("failed to reset login rate limit", zap.Error(err))
		}
	}

	metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess).Inc()
	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", tenant.ID.String()))

	return &models.LoginResponse{
		Message:   "Login successful",
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      models.NewUserProfile(user, tenant),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*common.Principal, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, common.Unauthenticated("invalid or expired token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.Unauthenticated("invalid token, user not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, common.Unauthenticated("account is deactivated")
	}

	tenant, err := s.resolver.ResolveTenant(ctx, user)
	if err != nil {
		return nil, err
	}

	return &common.Principal{User: user, Tenant: tenant}, nil
}

// limited fails open when the rate limiter is unavailable.
func (s *authService) limited(ctx context.Context, email string) bool {
	if s.cacheSvc == nil || s.rateLimit.Limit <= 0 {
		return false
	}
	limited, err := s.cacheSvc.IsRateLimited(ctx, loginKey(email), s.rateLimit.Limit, s.rateLimit.Window)
	if err != nil {
		s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		return false
	}
	return limited
}

func loginKey(email string) string {
	return "login:" + email
}

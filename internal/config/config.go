// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	QuotaModeStrict  = "strict"
	QuotaModeRelaxed = "relaxed"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment ("development" or "production").
	Env      string `mapstructure:"APP_ENV"`
	Port     int    `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// DatabaseURL is the Postgres DSN.
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`

	// JWTSecret signs access tokens (HS256). Generated per process outside production.
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTExpiresIn string `mapstructure:"JWT_EXPIRES_IN"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	BcryptCost   int    `mapstructure:"BCRYPT_COST"`

	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	TenantCacheTTL string `mapstructure:"TENANT_CACHE_TTL"`

	LoginRateLimit  int    `mapstructure:"LOGIN_RATE_LIMIT"`
	LoginRateWindow string `mapstructure:"LOGIN_RATE_WINDOW"`

	// QuotaMode is "strict" (count and insert in one locked transaction) or
	// "relaxed" (separate count then insert; concurrent creations may overshoot).
	QuotaMode string `mapstructure:"QUOTA_MODE"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	ExportURLTTL   string `mapstructure:"EXPORT_URL_TTL"`

	QuotaAuditInterval string `mapstructure:"QUOTA_AUDIT_INTERVAL"`
	// ExportCron schedules nightly tenant snapshots; empty disables the job.
	ExportCron string `mapstructure:"EXPORT_CRON"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("JWT_ISSUER", "notesaas")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TENANT_CACHE_TTL", "5m")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("LOGIN_RATE_WINDOW", "15m")
	v.SetDefault("QUOTA_MODE", QuotaModeStrict)
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "note-exports")
	v.SetDefault("EXPORT_URL_TTL", "1h")
	v.SetDefault("QUOTA_AUDIT_INTERVAL", "15m")
	v.SetDefault("EXPORT_CRON", "0 3 * * *")
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("config: JWT_SECRET must be set when APP_ENV=production")
		}
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("config: generate JWT secret: %w", err)
		}
		c.JWTSecret = secret
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	c.QuotaMode = strings.ToLower(strings.TrimSpace(c.QuotaMode))
	if c.QuotaMode != QuotaModeStrict && c.QuotaMode != QuotaModeRelaxed {
		return fmt.Errorf("config: QUOTA_MODE must be %q or %q, got %q", QuotaModeStrict, QuotaModeRelaxed, c.QuotaMode)
	}

	for key, val := range map[string]string{
		"JWT_EXPIRES_IN":       c.JWTExpiresIn,
		"TENANT_CACHE_TTL":     c.TenantCacheTTL,
		"LOGIN_RATE_WINDOW":    c.LoginRateWindow,
		"EXPORT_URL_TTL":       c.ExportURLTTL,
		"QUOTA_AUDIT_INTERVAL": c.QuotaAuditInterval,
	} {
		if d, err := time.ParseDuration(val); err != nil || d <= 0 {
			return fmt.Errorf("config: %s must be a positive duration, got %q", key, val)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) StrictQuota() bool {
	return c.QuotaMode == QuotaModeStrict
}

// TokenTTL is the access token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return mustDuration(c.JWTExpiresIn)
}

func (c *Config) TenantCacheDuration() time.Duration {
	return mustDuration(c.TenantCacheTTL)
}

func (c *Config) LoginWindow() time.Duration {
	return mustDuration(c.LoginRateWindow)
}

func (c *Config) ExportURLDuration() time.Duration {
	return mustDuration(c.ExportURLTTL)
}

func (c *Config) QuotaAuditEvery() time.Duration {
	return mustDuration(c.QuotaAuditInterval)
}

// mustDuration parses a value already checked by validate.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

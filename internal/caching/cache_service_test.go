package caching

import (
	"context"
	"os"
	"testing"
	"time"

	"notesaas/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestKeys(t *testing.T) {
	id := uuid.MustParse("7f9c0a2e-1b2c-4d5e-8f90-123456789abc")
	assert.Equal(t, "notesaas:tenant:7f9c0a2e-1b2c-4d5e-8f90-123456789abc", tenantKey(id))
	assert.Equal(t, "notesaas:ratelimit:login:a@b.test", rateLimitKey("login:a@b.test"))
}

func TestNewRedisClient_ParsesURL(t *testing.T) {
	client := NewRedisClient("redis://cache.internal:6380/2", "", 0)
	defer client.Close()

	assert.Equal(t, "cache.internal:6380", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
}

// RedisCacheTestSuite runs against a live Redis when REDIS_TEST_ADDR is set.
type RedisCacheTestSuite struct {
	suite.Suite
	cache CacheService
	ctx   context.Context
}

func TestRedisCacheTestSuite(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := NewRedisClient(addr, "", 15)
	t.Cleanup(func() { _ = client.Close() })

	suite.Run(t, &RedisCacheTestSuite{cache: NewRedisCacheService(client), ctx: context.Background()})
}

func (s *RedisCacheTestSuite) TestTenantRoundTrip() {
	tenant := &models.Tenant{ID: uuid.New(), Name: "Acme", Slug: "acme", Subscription: models.PlanFree}

	miss, err := s.cache.GetTenant(s.ctx, tenant.ID)
	s.Require().NoError(err)
	s.Nil(miss)

	s.Require().NoError(s.cache.SetTenant(s.ctx, tenant, time.Minute))
	got, err := s.cache.GetTenant(s.ctx, tenant.ID)
	s.Require().NoError(err)
	s.Equal(tenant.Slug, got.Slug)

	s.Require().NoError(s.cache.DeleteTenant(s.ctx, tenant.ID))
	got, err = s.cache.GetTenant(s.ctx, tenant.ID)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisCacheTestSuite) TestRateLimit() {
	key := "test:" + uuid.NewString()
	defer func() { _ = s.cache.ResetRateLimit(s.ctx, key) }()

	for i := 0; i < 2; i++ {
		limited, err := s.cache.IsRateLimited(s.ctx, key, 2, time.Minute)
		require.NoError(s.T(), err)
		s.False(limited)
	}
	limited, err := s.cache.IsRateLimited(s.ctx, key, 2, time.Minute)
	s.Require().NoError(err)
	s.True(limited)

	s.Require().NoError(s.cache.ResetRateLimit(s.ctx, key))
	limited, err = s.cache.IsRateLimited(s.ctx, key, 2, time.Minute)
	s.Require().NoError(err)
	s.False(limited)
}

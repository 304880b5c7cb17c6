package testhelpers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notesaas/internal/models"
	"notesaas/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNote(tenant *models.Tenant, user *models.User, title string) *models.Note {
	now := time.Now().UTC()
	return &models.Note{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Title:     title,
		Content:   "body",
		Tags:      []string{"test"},
		CreatedBy: user.ID,
		UpdatedBy: user.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNoteRepository_Postgres(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup()

	ctx := context.Background()
	tenant := SetupTestTenant(t, testDB)
	other := SetupTestTenant(t, testDB)
	user := SetupTestUser(t, testDB, tenant, models.RoleMember)

	repo := repositories.NewNoteRepo(testDB.Pool)

	note := newNote(tenant, user, "first")
	require.NoError(t, repo.Create(ctx, note))

	t.Run("scoped lookup", func(t *testing.T) {
		got, err := repo.GetByID(ctx, tenant.ID, note.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Title)
		assert.Equal(t, []string{"test"}, got.Tags)

		_, err = repo.GetByID(ctx, other.ID, note.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("soft delete keeps the row", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, tenant.ID, note.ID, user.ID, time.Now().UTC()))

		got, err := repo.GetByID(ctx, tenant.ID, note.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		count, err := repo.CountActive(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		assert.ErrorIs(t, repo.SoftDelete(ctx, tenant.ID, note.ID, user.ID, time.Now().UTC()), repositories.ErrNotFound)
	})
}

func TestNoteRepository_CreateWithinLimitIsSerialised(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup()

	ctx := context.Background()
	tenant := SetupTestTenant(t, testDB)
	user := SetupTestUser(t, testDB, tenant, models.RoleMember)
	repo := repositories.NewNoteRepo(testDB.Pool)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, rejected := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateWithinLimit(ctx, newNote(tenant, user, "concurrent"), models.FreeNotesLimit)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, repositories.ErrLimitReached):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, models.FreeNotesLimit, created)
	assert.Equal(t, attempts-models.FreeNotesLimit, rejected)

	count, err := repo.CountActive(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FreeNotesLimit, count)
}

func TestTenantRepository_UpgradeIsOneWay(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup()

	ctx := context.Background()
	tenant := SetupTestTenant(t, testDB)
	repo := repositories.NewTenantRepo(testDB.Pool)

	changed, err := repo.UpdateSubscription(ctx, tenant.ID, models.PlanFree, models.PlanPro)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateSubscription(ctx, tenant.ID, models.PlanFree, models.PlanPro)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetBySlug(ctx, tenant.Slug)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, got.Subscription)
}

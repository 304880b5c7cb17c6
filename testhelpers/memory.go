package testhelpers

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"notesaas/internal/models"
	"notesaas/internal/repositories"

	"github.com/google/uuid"
)

// MemoryTenantRepo is an in-memory repositories.TenantRepository
type MemoryTenantRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]models.Tenant
}

func NewMemoryTenantRepo() *MemoryTenantRepo {
	return &MemoryTenantRepo{tenants: make(map[uuid.UUID]models.Tenant)}
}

func (r *MemoryTenantRepo) Create(_ context.Context, tenant *models.Tenant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == tenant.Slug {
			return false, nil
		}
	}
	now := time.Now().UTC()
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	r.tenants[tenant.ID] = *tenant
	return true, nil
}

func (r *MemoryTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r *MemoryTenantRepo) GetBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *MemoryTenantRepo) UpdateSubscription(_ context.Context, id uuid.UUID, from, to models.Plan) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok || t.Subscription != from {
		return false, nil
	}
	t.Subscription = to
	t.UpdatedAt = time.Now().UTC()
	r.tenants[id] = t
	return true, nil
}

func (r *MemoryTenantRepo) List(_ context.Context, limit, offset int) ([]*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*models.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		all = append(all, &t)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return page(all, limit, offset), nil
}

// MemoryUserRepo is an in-memory repositories.UserRepository
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[uuid.UUID]models.User)}
}

func (r *MemoryUserRepo) Create(_ context.Context, user *models.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return false, nil
		}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return true, nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *MemoryUserRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		if u.TenantID == tenantID {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// SetActive flips a user's active flag
func (r *MemoryUserRepo) SetActive(id uuid.UUID, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsActive = active
		r.users[id] = u
	}
}

// MemoryNoteRepo is an in-memory repositories.NoteRepository
type MemoryNoteRepo struct {
	mu    sync.Mutex
	notes map[uuid.UUID]models.Note

	// BeforeCreate, when set, runs before every plain Create outside the lock.
	// Tests use it to interleave concurrent creations.
	BeforeCreate func()
}

func NewMemoryNoteRepo() *MemoryNoteRepo {
	return &MemoryNoteRepo{notes: make(map[uuid.UUID]models.Note)}
}

func cloneNote(n models.Note) *models.Note {
	n.Tags = slices.Clone(n.Tags)
	return &n
}

func (r *MemoryNoteRepo) Create(_ context.Context, note *models.Note) error {
	if r.BeforeCreate != nil {
		r.BeforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[note.ID] = *cloneNote(*note)
	return nil
}

func (r *MemoryNoteRepo) CreateWithinLimit(_ context.Context, note *models.Note, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := r.countActive(note.TenantID)
	if count >= limit {
		return count, repositories.ErrLimitReached
	}
	r.notes[note.ID] = *cloneNote(*note)
	return count, nil
}

func (r *MemoryNoteRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	return cloneNote(n), nil
}

func (r *MemoryNoteRepo) Update(_ context.Context, note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[note.ID]
	if !ok || n.TenantID != note.TenantID || !n.IsActive {
		return repositories.ErrNotFound
	}
	n.Title = note.Title
	n.Content = note.Content
	n.Tags = slices.Clone(note.Tags)
	n.UpdatedBy = note.UpdatedBy
	n.UpdatedAt = note.UpdatedAt
	r.notes[note.ID] = n
	return nil
}

func (r *MemoryNoteRepo) SoftDelete(_ context.Context, tenantID, id, by uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.TenantID != tenantID || !n.IsActive {
		return repositories.ErrNotFound
	}
	n.IsActive = false
	n.UpdatedBy = by
	n.UpdatedAt = at
	r.notes[id] = n
	return nil
}

func (r *MemoryNoteRepo) List(_ context.Context, tenantID uuid.UUID, opts models.NoteListOptions) ([]*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notes := r.active(tenantID)
	sort.SliceStable(notes, func(i, j int) bool {
		var c int
		switch opts.SortField {
		case models.NoteSortTitle:
			c = strings.Compare(notes[i].Title, notes[j].Title)
		case models.NoteSortUpdatedAt:
			c = notes[i].UpdatedAt.Compare(notes[j].UpdatedAt)
		default:
			c = notes[i].CreatedAt.Compare(notes[j].CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(notes[i].ID.String(), notes[j].ID.String())
		}
		if opts.Ascending {
			return c < 0
		}
		return c > 0
	})
	return page(notes, opts.Limit, opts.Offset), nil
}

func (r *MemoryNoteRepo) ListActive(_ context.Context, tenantID uuid.UUID) ([]*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notes := r.active(tenantID)
	sort.Slice(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	return notes, nil
}

func (r *MemoryNoteRepo) CountActive(_ context.Context, tenantID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countActive(tenantID), nil
}

func (r *MemoryNoteRepo) CountActiveByCreator(_ context.Context, tenantID, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notes {
		if n.TenantID == tenantID && n.CreatedBy == userID && n.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *MemoryNoteRepo) CountActiveByTenant(_ context.Context) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[uuid.UUID]int)
	for _, n := range r.notes {
		if n.IsActive {
			counts[n.TenantID]++
		}
	}
	return counts, nil
}

// Raw returns the stored note regardless of tenant or state
func (r *MemoryNoteRepo) Raw(id uuid.UUID) (models.Note, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	return n, ok
}

func (r *MemoryNoteRepo) countActive(tenantID uuid.UUID) int {
	count := 0
	for _, n := range r.notes {
		if n.TenantID == tenantID && n.IsActive {
			count++
		}
	}
	return count
}

func (r *MemoryNoteRepo) active(tenantID uuid.UUID) []*models.Note {
	notes := []*models.Note{}
	for _, n := range r.notes {
		if n.TenantID == tenantID && n.IsActive {
			notes = append(notes, cloneNote(n))
		}
	}
	return notes
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// MemoryCache is an in-memory caching.CacheService. Expiry is not modelled.
type MemoryCache struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]models.Tenant
	counters map[string]int

	// Err, when set, is returned by every operation.
	Err error
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		tenants:  make(map[uuid.UUID]models.Tenant),
		counters: make(map[string]int),
	}
}

func (c *MemoryCache) GetTenant(_ context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	t, ok := c.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (c *MemoryCache) SetTenant(_ context.Context, tenant *models.Tenant, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.tenants[tenant.ID] = *tenant
	return nil
}

func (c *MemoryCache) DeleteTenant(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	delete(c.tenants, tenantID)
	return nil
}

func (c *MemoryCache) IsRateLimited(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	c.counters[key]++
	return c.counters[key] > limit, nil
}

func (c *MemoryCache) ResetRateLimit(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	delete(c.counters, key)
	return nil
}

func (c *MemoryCache) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Err
}

// CachedTenant reports whether the tenant is currently cached
func (c *MemoryCache) CachedTenant(tenantID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tenants[tenantID]
	return ok
}

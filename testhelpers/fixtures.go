package testhelpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"notesaas/internal/common"
	"notesaas/internal/models"
	"notesaas/internal/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every fixture user
const DefaultPassword = "password"

// Fixture is two free tenants, acme and globex, each with an admin and a
// member, stored in fresh in-memory repositories.
type Fixture struct {
	Tenants *MemoryTenantRepo
	Users   *MemoryUserRepo
	Notes   *MemoryNoteRepo
	Cache   *MemoryCache
	Storage *MemoryObjectStore
	Hasher  *security.Hasher

	Acme, Globex              *models.Tenant
	AcmeAdmin, AcmeMember     *models.User
	GlobexAdmin, GlobexMember *models.User
}

func NewFixture(t testing.TB) *Fixture {
	t.Helper()

	f := &Fixture{
		Tenants: NewMemoryTenantRepo(),
		Users:   NewMemoryUserRepo(),
		Notes:   NewMemoryNoteRepo(),
		Cache:   NewMemoryCache(),
		Storage: NewMemoryObjectStore(),
		Hasher:  security.NewHasher(bcrypt.MinCost),
	}

	hash, err := f.Hasher.Hash([]byte(DefaultPassword))
	require.NoError(t, err)

	f.Acme = f.AddTenant(t, "Acme Corporation", "acme")
	f.Globex = f.AddTenant(t, "Globex Corporation", "globex")
	f.AcmeAdmin = f.AddUser(t, f.Acme, "admin@acme.test", hash, models.RoleAdmin)
	f.AcmeMember = f.AddUser(t, f.Acme, "user@acme.test", hash, models.RoleMember)
	f.GlobexAdmin = f.AddUser(t, f.Globex, "admin@globex.test", hash, models.RoleAdmin)
	f.GlobexMember = f.AddUser(t, f.Globex, "user@globex.test", hash, models.RoleMember)
	return f
}

func (f *Fixture) AddTenant(t testing.TB, name, slug string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{ID: uuid.New(), Name: name, Slug: slug, Subscription: models.PlanFree}
	created, err := f.Tenants.Create(context.Background(), tenant)
	require.NoError(t, err)
	require.True(t, created, "slug %q already used", slug)
	return tenant
}

func (f *Fixture) AddUser(t testing.TB, tenant *models.Tenant, email, hash string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	created, err := f.Users.Create(context.Background(), user)
	require.NoError(t, err)
	require.True(t, created, "email %q already used", email)
	return user
}

// Principal returns the principal for user with its tenant loaded fresh
func (f *Fixture) Principal(t testing.TB, user *models.User) *common.Principal {
	t.Helper()
	tenant, err := f.Tenants.GetByID(context.Background(), user.TenantID)
	require.NoError(t, err)
	return &common.Principal{User: user, Tenant: tenant}
}

// AddNote stores an active note created by user at the given time
func (f *Fixture) AddNote(t testing.TB, user *models.User, title string, at time.Time) *models.Note {
	t.Helper()
	note := &models.Note{
		ID:        uuid.New(),
		TenantID:  user.TenantID,
		Title:     title,
		Content:   "content of " + title,
		Tags:      []string{},
		CreatedBy: user.ID,
		UpdatedBy: user.ID,
		IsActive:  true,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, f.Notes.Create(context.Background(), note))
	return note
}

// MemoryObjectStore is an in-memory object store with fake presigned URLs
type MemoryObjectStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	Err     error
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{buckets: make(map[string]map[string][]byte)}
}

func (s *MemoryObjectStore) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, _ int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	bucket, ok := s.buckets[bucketName]
	if !ok {
		return fmt.Errorf("bucket %q does not exist", bucketName)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	bucket[objectName] = buf.Bytes()
	return nil
}

func (s *MemoryObjectStore) GetPresignedURL(_ context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return fmt.Sprintf("https://storage.test/%s/%s?expires=%d", bucketName, objectName, int(expiry.Seconds())), nil
}

func (s *MemoryObjectStore) EnsureBucketExists(_ context.Context, bucketName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.buckets[bucketName]; !ok {
		s.buckets[bucketName] = make(map[string][]byte)
	}
	return nil
}

// Object returns a stored object's bytes
func (s *MemoryObjectStore) Object(bucketName, objectName string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.buckets[bucketName][objectName]
	return data, ok
}

// Objects lists object names in a bucket
func (s *MemoryObjectStore) Objects(bucketName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.buckets[bucketName] {
		names = append(names, name)
	}
	return names
}

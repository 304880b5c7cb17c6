package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"notesaas/internal/common"
	"notesaas/internal/models"
	"notesaas/internal/repositories"
	"notesaas/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type NoteServiceTestSuite struct {
	suite.Suite
	f       *testhelpers.Fixture
	service NoteService
	ctx     context.Context
}

func (s *NoteServiceTestSuite) SetupTest() {
	s.f = testhelpers.NewFixture(s.T())
	s.service = NewNoteService(s.f.Notes, true, zap.NewNop())
	s.ctx = context.Background()
}

func TestNoteServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NoteServiceTestSuite))
}

func (s *NoteServiceTestSuite) create(p *common.Principal, title string) (*models.Note, error) {
	return s.service.Create(s.ctx, p, CreateNoteInput{Title: title, Content: "body of " + title})
}

func (s *NoteServiceTestSuite) TestCreate_NormalizesInput() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)

	note, err := s.service.Create(s.ctx, p, CreateNoteInput{
		Title:   "  Quarterly plan  ",
		Content: "  trimmed both ends \n",
		Tags:    []string{" Work ", "work", "", "PLANNING"},
	})
	s.Require().NoError(err)

	s.Equal("Quarterly plan", note.Title)
	s.Equal("trimmed both ends", note.Content)
	s.Equal([]string{"work", "planning"}, note.Tags)
	s.Equal(s.f.Acme.ID, note.TenantID)
	s.Equal(s.f.AcmeMember.ID, note.CreatedBy)
	s.True(note.IsActive)
}

func (s *NoteServiceTestSuite) TestCreate_Validation() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)

	tests := []struct {
		name  string
		in    CreateNoteInput
		field string
	}{
		{"missing title", CreateNoteInput{Title: "   ", Content: "x"}, "title"},
		{"missing content", CreateNoteInput{Title: "t", Content: " \n"}, "content"},
		{"long title", CreateNoteInput{Title: string(make([]rune, 256)), Content: "x"}, "title"},
		{"long content", CreateNoteInput{Title: "t", Content: fmt.Sprintf("%010001d", 0)}, "content"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Create(s.ctx, p, tt.in)
			var ve *common.ValidationError
			s.Require().True(errors.As(err, &ve), "got %v", err)
			s.Equal(tt.field, ve.Field)
		})
	}
}

func (s *NoteServiceTestSuite) TestCreate_FreeTenantCappedAtThree() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)

	for i := 0; i < models.FreeNotesLimit; i++ {
		_, err := s.create(p, fmt.Sprintf("note %d", i))
		s.Require().NoError(err)
	}

	_, err := s.create(p, "one too many")
	s.Require().ErrorIs(err, common.ErrQuotaExceeded)
	var qe *common.QuotaError
	s.Require().True(errors.As(err, &qe))
	s.Equal(3, qe.Current)
	s.Equal(3, qe.Limit)
	s.Equal("free", qe.Subscription)

	count, _ := s.f.Notes.CountActive(s.ctx, s.f.Acme.ID)
	s.Equal(3, count)
}

func (s *NoteServiceTestSuite) TestCreate_QuotaIsPerTenant() {
	acme := s.f.Principal(s.T(), s.f.AcmeMember)
	globex := s.f.Principal(s.T(), s.f.GlobexMember)

	for i := 0; i < models.FreeNotesLimit; i++ {
		_, err := s.create(acme, fmt.Sprintf("acme %d", i))
		s.Require().NoError(err)
	}

	_, err := s.create(globex, "globex note")
	s.NoError(err)
}

func (s *NoteServiceTestSuite) TestCreate_SoftDeleteFreesSlot() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)

	var first *models.Note
	for i := 0; i < models.FreeNotesLimit; i++ {
		n, err := s.create(p, fmt.Sprintf("note %d", i))
		s.Require().NoError(err)
		if first == nil {
			first = n
		}
	}
	_, err := s.create(p, "blocked")
	s.Require().ErrorIs(err, common.ErrQuotaExceeded)

	s.Require().NoError(s.service.SoftDelete(s.ctx, p, first.ID))

	_, err = s.create(p, "fits again")
	s.NoError(err)
}

func (s *NoteServiceTestSuite) TestCreate_UpgradeLiftsCap() {
	for i := 0; i < models.FreeNotesLimit; i++ {
		_, err := s.create(s.f.Principal(s.T(), s.f.AcmeMember), fmt.Sprintf("note %d", i))
		s.Require().NoError(err)
	}

	changed, err := s.f.Tenants.UpdateSubscription(s.ctx, s.f.Acme.ID, models.PlanFree, models.PlanPro)
	s.Require().NoError(err)
	s.Require().True(changed)

	p := s.f.Principal(s.T(), s.f.AcmeMember)
	for i := 0; i < 5; i++ {
		_, err := s.create(p, fmt.Sprintf("pro note %d", i))
		s.Require().NoError(err)
	}
	count, _ := s.f.Notes.CountActive(s.ctx, s.f.Acme.ID)
	s.Equal(8, count)
}

func (s *NoteServiceTestSuite) TestGet_ForeignNoteIsNotFound() {
	globexNote := s.f.AddNote(s.T(), s.f.GlobexMember, "secret plans", time.Now())

	_, err := s.service.Get(s.ctx, s.f.Principal(s.T(), s.f.AcmeAdmin), globexNote.ID)
	s.ErrorIs(err, common.ErrNotFound)

	_, err = s.service.Update(s.ctx, s.f.Principal(s.T(), s.f.AcmeAdmin), globexNote.ID, UpdateNoteInput{Title: ptr("hijacked")})
	s.ErrorIs(err, common.ErrNotFound)

	s.ErrorIs(s.service.SoftDelete(s.ctx, s.f.Principal(s.T(), s.f.AcmeAdmin), globexNote.ID), common.ErrNotFound)

	raw, _ := s.f.Notes.Raw(globexNote.ID)
	s.Equal("secret plans", raw.Title)
	s.True(raw.IsActive)
}

func (s *NoteServiceTestSuite) TestGet_SoftDeletedIsNotFoundButKept() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)
	note, err := s.create(p, "temporary")
	s.Require().NoError(err)

	s.Require().NoError(s.service.SoftDelete(s.ctx, p, note.ID))

	_, err = s.service.Get(s.ctx, p, note.ID)
	s.ErrorIs(err, common.ErrNotFound)
	s.ErrorIs(s.service.SoftDelete(s.ctx, p, note.ID), common.ErrNotFound)

	raw, ok := s.f.Notes.Raw(note.ID)
	s.Require().True(ok)
	s.False(raw.IsActive)
	s.Equal(s.f.AcmeMember.ID, raw.UpdatedBy)
}

func (s *NoteServiceTestSuite) TestUpdate_OwnershipRules() {
	creator := s.f.Principal(s.T(), s.f.AcmeMember)
	note, err := s.create(creator, "mine")
	s.Require().NoError(err)

	otherMember := s.f.AddUser(s.T(), s.f.Acme, "other@acme.test", "x", models.RoleMember)
	_, err = s.service.Update(s.ctx, s.f.Principal(s.T(), otherMember), note.ID, UpdateNoteInput{Title: ptr("theirs")})
	s.ErrorIs(err, common.ErrForbidden)
	s.ErrorIs(s.service.SoftDelete(s.ctx, s.f.Principal(s.T(), otherMember), note.ID), common.ErrForbidden)

	updated, err := s.service.Update(s.ctx, s.f.Principal(s.T(), s.f.AcmeAdmin), note.ID, UpdateNoteInput{
		Title: ptr("  admin edit "),
		Tags:  &[]string{"Reviewed"},
	})
	s.Require().NoError(err)
	s.Equal("admin edit", updated.Title)
	s.Equal("body of mine", updated.Content)
	s.Equal([]string{"reviewed"}, updated.Tags)
	s.Equal(s.f.AcmeAdmin.ID, updated.UpdatedBy)
	s.Equal(s.f.AcmeMember.ID, updated.CreatedBy)

	got, err := s.service.Get(s.ctx, creator, note.ID)
	s.Require().NoError(err)
	s.Equal("admin edit", got.Title)
}

func (s *NoteServiceTestSuite) TestUpdate_Validation() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)
	note, err := s.create(p, "mine")
	s.Require().NoError(err)

	_, err = s.service.Update(s.ctx, p, note.ID, UpdateNoteInput{})
	s.ErrorIs(err, common.ErrValidation)

	_, err = s.service.Update(s.ctx, p, note.ID, UpdateNoteInput{Title: ptr("")})
	s.ErrorIs(err, common.ErrValidation)

	_, err = s.service.Update(s.ctx, p, note.ID, UpdateNoteInput{Content: ptr("   ")})
	s.ErrorIs(err, common.ErrValidation)
}

func (s *NoteServiceTestSuite) TestContentLengthCountsTrimmedText() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)
	full := strings.Repeat("a", models.MaxNoteContentLength)

	note, err := s.service.Create(s.ctx, p, CreateNoteInput{Title: "full", Content: full + "  \n"})
	s.Require().NoError(err)
	s.Equal(full, note.Content)

	updated, err := s.service.Update(s.ctx, p, note.ID, UpdateNoteInput{Content: ptr("\t" + full + " ")})
	s.Require().NoError(err)
	s.Equal(full, updated.Content)

	_, err = s.service.Update(s.ctx, p, note.ID, UpdateNoteInput{Content: ptr(full + "b")})
	s.ErrorIs(err, common.ErrValidation)
}

func (s *NoteServiceTestSuite) TestList_PaginationAndQuotaSummary() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	titles := []string{"delta", "alpha", "echo", "charlie", "bravo"}
	for i, title := range titles {
		s.f.AddNote(s.T(), s.f.AcmeMember, title, base.Add(time.Duration(i)*time.Hour))
	}
	s.f.AddNote(s.T(), s.f.GlobexMember, "globex only", base)
	p := s.f.Principal(s.T(), s.f.AcmeMember)

	first, err := s.service.List(s.ctx, p, ListNotesParams{Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(first.Notes, 2)
	s.Equal("bravo", first.Notes[0].Title)
	s.Equal("charlie", first.Notes[1].Title)
	s.Equal(models.Pagination{CurrentPage: 1, TotalPages: 3, TotalNotes: 5, HasMore: true}, first.Pagination)
	s.Equal(models.PlanFree, first.Tenant.Subscription)
	s.Equal(5, first.Tenant.CurrentCount)
	s.Require().NotNil(first.Tenant.NotesLimit)
	s.Equal(3, *first.Tenant.NotesLimit)

	last, err := s.service.List(s.ctx, p, ListNotesParams{Page: 3, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(last.Notes, 1)
	s.Equal("delta", last.Notes[0].Title)
	s.False(last.Pagination.HasMore)

	byTitle, err := s.service.List(s.ctx, p, ListNotesParams{Sort: models.NoteSortTitle, Order: "asc"})
	s.Require().NoError(err)
	s.Require().Len(byTitle.Notes, 5)
	s.Equal("alpha", byTitle.Notes[0].Title)
	s.Equal("echo", byTitle.Notes[4].Title)
	for _, n := range byTitle.Notes {
		s.Equal(s.f.Acme.ID, n.TenantID)
	}
}

func (s *NoteServiceTestSuite) TestList_Defaults() {
	p := s.f.Principal(s.T(), s.f.AcmeMember)

	list, err := s.service.List(s.ctx, p, ListNotesParams{Page: -4, Limit: 1000})
	s.Require().NoError(err)
	s.Equal(1, list.Pagination.CurrentPage)
	s.Equal(0, list.Pagination.TotalPages)
	s.NotNil(list.Notes)

	_, err = s.service.List(s.ctx, p, ListNotesParams{Sort: "password_hash"})
	s.ErrorIs(err, common.ErrValidation)
}

func (s *NoteServiceTestSuite) TestStats() {
	now := time.Now()
	s.f.AddNote(s.T(), s.f.AcmeMember, "one", now)
	s.f.AddNote(s.T(), s.f.AcmeMember, "two", now)
	s.f.AddNote(s.T(), s.f.AcmeAdmin, "three", now)
	s.f.AddNote(s.T(), s.f.GlobexMember, "elsewhere", now)

	stats, err := s.service.Stats(s.ctx, s.f.Principal(s.T(), s.f.AcmeMember))
	s.Require().NoError(err)
	s.Equal(3, stats.TotalNotes)
	s.Equal(2, stats.UserNotes)
	s.Require().NotNil(stats.RemainingNotes)
	s.Equal(0, *stats.RemainingNotes)
	s.False(stats.CanCreateNotes)
	s.Equal(models.PlanFree, stats.Subscription)

	stats, err = s.service.Stats(s.ctx, s.f.Principal(s.T(), s.f.GlobexAdmin))
	s.Require().NoError(err)
	s.Equal(1, stats.TotalNotes)
	s.Equal(0, stats.UserNotes)
	s.Equal(2, *stats.RemainingNotes)
	s.True(stats.CanCreateNotes)
}

// concurrentCreates runs n creations for the same free tenant at once and
// returns how many were admitted.
func concurrentCreates(t *testing.T, f *testhelpers.Fixture, service NoteService, n int) int {
	t.Helper()
	p := f.Principal(t, f.AcmeMember)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.Create(context.Background(), p, CreateNoteInput{Title: fmt.Sprintf("race %d", i), Content: "x"})
			if err != nil && !errors.Is(err, common.ErrQuotaExceeded) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return admitted
}

func TestNoteService_RelaxedQuotaRaceOvershoots(t *testing.T) {
	f := testhelpers.NewFixture(t)
	service := NewNoteService(f.Notes, false, zap.NewNop())

	const n = 5
	var barrier sync.WaitGroup
	barrier.Add(n)
	// every request counts before any request inserts
	f.Notes.BeforeCreate = func() {
		barrier.Done()
		barrier.Wait()
	}

	admitted := concurrentCreates(t, f, service, n)
	assert.Equal(t, n, admitted)

	count, err := f.Notes.CountActive(context.Background(), f.Acme.ID)
	require.NoError(t, err)
	assert.Greater(t, count, models.FreeNotesLimit)
}

func TestNoteService_StrictQuotaHoldsUnderConcurrency(t *testing.T) {
	f := testhelpers.NewFixture(t)
	service := NewNoteService(f.Notes, true, zap.NewNop())

	admitted := concurrentCreates(t, f, service, 20)
	assert.Equal(t, models.FreeNotesLimit, admitted)

	count, err := f.Notes.CountActive(context.Background(), f.Acme.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FreeNotesLimit, count)
}

type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) Create(ctx context.Context, note *models.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNoteRepository) CreateWithinLimit(ctx context.Context, note *models.Note, limit int) (int, error) {
	args := m.Called(ctx, note, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockNoteRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Note, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockNoteRepository) Update(ctx context.Context, note *models.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNoteRepository) SoftDelete(ctx context.Context, tenantID, id, by uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tenantID, id, by, at)
	return args.Error(0)
}

func (m *MockNoteRepository) List(ctx context.Context, tenantID uuid.UUID, opts models.NoteListOptions) ([]*models.Note, error) {
	args := m.Called(ctx, tenantID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Note), args.Error(1)
}

func (m *MockNoteRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Note, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Note), args.Error(1)
}

func (m *MockNoteRepository) CountActive(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockNoteRepository) CountActiveByCreator(ctx context.Context, tenantID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNoteRepository) CountActiveByTenant(ctx context.Context) (map[uuid.UUID]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

func TestNoteService_StrictLimitReachedUnderLock(t *testing.T) {
	ctx := context.Background()
	repo := &MockNoteRepository{}
	repo.Test(t)
	defer repo.AssertExpectations(t)

	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Subscription: models.PlanFree}
	p := &common.Principal{User: &models.User{ID: uuid.New(), TenantID: tenant.ID, Role: models.RoleMember}, Tenant: tenant}

	// count says there is room, the locked recount disagrees
	repo.On("CountActive", ctx, tenant.ID).Return(2, nil).Once()
	repo.On("CreateWithinLimit", ctx, mock.AnythingOfType("*models.Note"), models.FreeNotesLimit).
		Return(3, repositories.ErrLimitReached).Once()

	service := NewNoteService(repo, true, zap.NewNop())
	_, err := service.Create(ctx, p, CreateNoteInput{Title: "t", Content: "c"})

	var qe *common.QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 3, qe.Current)
}

func TestNoteService_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	repo := &MockNoteRepository{}
	repo.Test(t)
	defer repo.AssertExpectations(t)

	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Subscription: models.PlanPro}
	p := &common.Principal{User: &models.User{ID: uuid.New(), TenantID: tenant.ID, Role: models.RoleMember}, Tenant: tenant}
	storeErr := errors.New("connection reset")

	repo.On("CountActive", ctx, tenant.ID).Return(0, storeErr).Once()
	repo.On("GetByID", ctx, tenant.ID, mock.Anything).Return(nil, storeErr).Once()

	service := NewNoteService(repo, true, zap.NewNop())

	_, err := service.Create(ctx, p, CreateNoteInput{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, storeErr)

	_, err = service.Get(ctx, p, uuid.New())
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestNoteService_ProTenantSkipsLockedInsert(t *testing.T) {
	ctx := context.Background()
	repo := &MockNoteRepository{}
	repo.Test(t)
	defer repo.AssertExpectations(t)

	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Subscription: models.PlanPro}
	p := &common.Principal{User: &models.User{ID: uuid.New(), TenantID: tenant.ID, Role: models.RoleMember}, Tenant: tenant}

	repo.On("CountActive", ctx, tenant.ID).Return(500, nil).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(n *models.Note) bool {
		return n.TenantID == tenant.ID && n.CreatedBy == p.User.ID
	})).Return(nil).Once()

	service := NewNoteService(repo, true, zap.NewNop())
	_, err := service.Create(ctx, p, CreateNoteInput{Title: "t", Content: "c"})
	assert.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}

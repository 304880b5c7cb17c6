package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notesaas/internal/common"
	"notesaas/internal/metrics"
	"notesaas/internal/models"
	"notesaas/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultNotesPageSize = 10
	MaxNotesPageSize     = 100
)

type CreateNoteInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// UpdateNoteInput applies only the fields that are set
type UpdateNoteInput struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

type ListNotesParams struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

// NoteService runs every note operation inside the principal's own tenant.
type NoteService interface {
	Create(ctx context.Context, p *common.Principal, in CreateNoteInput) (*models.Note, error)
	List(ctx context.Context, p *common.Principal, params ListNotesParams) (*models.NoteList, error)
	Get(ctx context.Context, p *common.Principal, id uuid.UUID) (*models.Note, error)
	Update(ctx context.Context, p *common.Principal, id uuid.UUID, in UpdateNoteInput) (*models.Note, error)
	SoftDelete(ctx context.Context, p *common.Principal, id uuid.UUID) error
	Stats(ctx context.Context, p *common.Principal) (*models.NoteStats, error)
}

type noteService struct {
	notes  repositories.NoteRepository
	strict bool
	logger *zap.Logger
	now    func() time.Time
}

// NewNoteService builds the note service. With strictQuota the count and
// insert happen in one transaction serialised per tenant; otherwise they are
// two separate store calls and concurrent creations may overshoot the cap.
func NewNoteService(notes repositories.NoteRepository, strictQuota bool, logger *zap.Logger) NoteService {
	return &noteService{
		notes:  notes,
		strict: strictQuota,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *noteService) Create(ctx context.Context, p *common.Principal, in CreateNoteInput) (*models.Note, error) {
	title, err := common.ValidateRequiredString(in.Title, "title", models.MaxNoteTitleLength)
	if err != nil {
		return nil, err
	}
	content, err := common.ValidateRequiredString(in.Content, "content", models.MaxNoteContentLength)
	if err != nil {
		return nil, err
	}

	tenant := p.Tenant
	count, err := s.notes.CountActive(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}
	if err := QuotaCheck(tenant, count); err != nil {
		metrics.QuotaRejections.WithLabelValues(string(tenant.Subscription)).Inc()
		return nil, err
	}

	now := s.now()
	note := &models.Note{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Title:     title,
		Content:   content,
		Tags:      common.NormalizeTags(in.Tags),
		CreatedBy: p.User.ID,
		UpdatedBy: p.User.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if limit := tenant.NotesLimit(); s.strict && limit != nil {
		current, err := s.notes.CreateWithinLimit(ctx, note, *limit)
		if errors.Is(err, repositories.ErrLimitReached) {
			metrics.QuotaRejections.WithLabelValues(string(tenant.Subscription)).Inc()
			return nil, QuotaCheck(tenant, current)
		}
		if err != nil {
			return nil, fmt.Errorf("create note: %w", err)
		}
	} else if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	metrics.NotesCreated.Inc()
	s.logger.Info("note created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("note_id", note.ID.String()),
		zap.String("user_id", p.User.ID.String()))
	return note, nil
}

func (s *noteService) List(ctx context.Context, p *common.Principal, params ListNotesParams) (*models.NoteList, error) {
	sortField := params.Sort
	if sortField == "" {
		sortField = models.NoteSortCreatedAt
	}
	switch sortField {
	case models.NoteSortCreatedAt, models.NoteSortUpdatedAt, models.NoteSortTitle:
	default:
		return nil, common.NewValidationError("sort", "must be one of created_at, updated_at, title")
	}

	page, limit, offset, err := common.ValidatePaginationParams(params.Page, params.Limit, DefaultNotesPageSize, MaxNotesPageSize)
	if err != nil {
		return nil, err
	}
	tenant := p.Tenant

	notes, err := s.notes.List(ctx, tenant.ID, models.NoteListOptions{
		SortField: sortField,
		Ascending: common.ValidateSortOrder(params.Order),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	total, err := s.notes.CountActive(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	totalPages := (total + limit - 1) / limit
	return &models.NoteList{
		Notes: notes,
		Pagination: models.Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalNotes:  total,
			HasMore:     page < totalPages,
		},
		Tenant: models.QuotaSummary{
			Subscription: tenant.Subscription,
			NotesLimit:   tenant.NotesLimit(),
			CurrentCount: total,
		},
	}, nil
}

func (s *noteService) Get(ctx context.Context, p *common.Principal, id uuid.UUID) (*models.Note, error) {
	return s.activeNote(ctx, p, id)
}

func (s *noteService) Update(ctx context.Context, p *common.Principal, id uuid.UUID, in UpdateNoteInput) (*models.Note, error) {
	if in.Title == nil && in.Content == nil && in.Tags == nil {
		return nil, common.NewValidationError("body", "at least one field must be provided")
	}
	if err := common.ValidateOptionalString(in.Title, "title", models.MaxNoteTitleLength); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.Content, "content", models.MaxNoteContentLength); err != nil {
		return nil, err
	}

	note, err := s.activeNote(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !CanModify(note, p.User) {
		return nil, common.Forbidden("you can only edit your own notes")
	}

	if in.Title != nil {
		note.Title = *in.Title
	}
	if in.Content != nil {
		note.Content = *in.Content
	}
	if in.Tags != nil {
		note.Tags = common.NormalizeTags(*in.Tags)
	}
	note.UpdatedBy = p.User.ID
	note.UpdatedAt = s.now()

	if err := s.notes.Update(ctx, note); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// deleted concurrently
			return nil, common.NotFound("note")
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

func (s *noteService) SoftDelete(ctx context.Context, p *common.Principal, id uuid.UUID) error {
	note, err := s.activeNote(ctx, p, id)
	if err != nil {
		return err
	}
	if !CanModify(note, p.User) {
		return common.Forbidden("you can only delete your own notes")
	}

	if err := s.notes.SoftDelete(ctx, p.Tenant.ID, id, p.User.ID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.NotFound("note")
		}
		return fmt.Errorf("delete note: %w", err)
	}

	s.logger.Info("note deleted",
		zap.String("tenant_id", p.Tenant.ID.String()),
		zap.String("note_id", id.String()),
		zap.String("user_id", p.User.ID.String()))
	return nil
}

func (s *noteService) Stats(ctx context.Context, p *common.Principal) (*models.NoteStats, error) {
	tenant := p.Tenant

	total, err := s.notes.CountActive(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}
	own, err := s.notes.CountActiveByCreator(ctx, tenant.ID, p.User.ID)
	if err != nil {
		return nil, fmt.Errorf("count own notes: %w", err)
	}

	stats := &models.NoteStats{
		TotalNotes:     total,
		UserNotes:      own,
		NotesLimit:     tenant.NotesLimit(),
		Subscription:   tenant.Subscription,
		CanCreateNotes: tenant.CanCreateNotes(total),
	}
	if stats.NotesLimit != nil {
		remaining := max(*stats.NotesLimit-total, 0)
		stats.RemainingNotes = &remaining
	}
	return stats, nil
}

// activeNote loads a note of the principal's tenant. Missing, soft-deleted and
// foreign notes are all reported the same way.
func (s *noteService) activeNote(ctx context.Context, p *common.Principal, id uuid.UUID) (*models.Note, error) {
	note, err := s.notes.GetByID(ctx, p.Tenant.ID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound("note")
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	if !note.IsActive || note.TenantID != p.Tenant.ID {
		return nil, common.NotFound("note")
	}
	return note, nil
}

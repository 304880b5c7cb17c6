package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notesaas/internal/metrics"
	"notesaas/internal/models"
	"notesaas/internal/repositories"

	"go.uber.org/zap"
)

const (
	ExportTriggerManual    = "manual"
	ExportTriggerScheduled = "scheduled"
)

// ExportService writes JSON snapshots of a tenant's active notes to object storage.
type ExportService interface {
	ExportTenant(ctx context.Context, tenant *models.Tenant, trigger string) (*models.NoteExport, error)
}

type exportService struct {
	notes   repositories.NoteRepository
	storage MinioService
	bucket  string
	urlTTL  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewExportService(notes repositories.NoteRepository, storage MinioService, bucket string, urlTTL time.Duration, logger *zap.Logger) ExportService {
	return &exportService{
		notes:   notes,
		storage: storage,
		bucket:  bucket,
		urlTTL:  urlTTL,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type noteSnapshot struct {
	Tenant     models.TenantSummary `json:"tenant"`
	ExportedAt time.Time            `json:"exported_at"`
	Notes      []*models.Note       `json:"notes"`
}

// objectName keeps every tenant's exports under its own prefix
func objectName(slug string, at time.Time) string {
	return fmt.Sprintf("%s/notes-%s.json", slug, at.Format("20060102T150405Z"))
}

func (s *exportService) ExportTenant(ctx context.Context, tenant *models.Tenant, trigger string) (*models.NoteExport, error) {
	export, err := s.export(ctx, tenant)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.NoteExports.WithLabelValues(trigger, result).Inc()
	return export, err
}

func (s *exportService) export(ctx context.Context, tenant *models.Tenant) (*models.NoteExport, error) {
	notes, err := s.notes.ListActive(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	now := s.now()
	data, err := json.Marshal(noteSnapshot{
		Tenant:     models.NewTenantSummary(tenant),
		ExportedAt: now,
		Notes:      notes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.storage.EnsureBucketExists(ctx, s.bucket); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	name := objectName(tenant.Slug, now)
	if err := s.storage.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return nil, fmt.Errorf("upload snapshot: %w", err)
	}

	url, err := s.storage.GetPresignedURL(ctx, s.bucket, name, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("presign snapshot: %w", err)
	}

	s.logger.Info("tenant notes exported",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("object", name),
		zap.Int("notes", len(notes)))

	return &models.NoteExport{
		ObjectName:  name,
		NoteCount:   len(notes),
		DownloadURL: url,
		ExpiresAt:   now.Add(s.urlTTL),
		CreatedAt:   now,
	}, nil
}

package background

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"notesaas/internal/metrics"
	"notesaas/internal/models"
	"notesaas/internal/repositories"
	"notesaas/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const tenantPageSize = 100

// Config controls job cadence. An empty ExportCron disables nightly exports.
type Config struct {
	QuotaAuditEvery time.Duration
	ExportCron      string
}

// JobScheduler runs the periodic maintenance jobs
type JobScheduler struct {
	scheduler  gocron.Scheduler
	tenantRepo repositories.TenantRepository
	noteRepo   repositories.NoteRepository
	exporter   services.ExportService
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	jobs       map[string]gocron.Job
	mu         sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers its jobs. exporter may
// be nil, which disables nightly exports.
func NewJobScheduler(tenantRepo repositories.TenantRepository, noteRepo repositories.NoteRepository,
	exporter services.ExportService, cfg Config, logger *zap.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler:  scheduler,
		tenantRepo: tenantRepo,
		noteRepo:   noteRepo,
		exporter:   exporter,
		logger:     logger.Named("jobs"),
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]gocron.Job),
	}

	if err := js.registerJobs(cfg); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Strings("jobs", js.JobNames()))
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (js *JobScheduler) registerJobs(cfg Config) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if cfg.QuotaAuditEvery > 0 {
		job, err := js.scheduler.NewJob(
			gocron.DurationJob(cfg.QuotaAuditEvery),
			gocron.NewTask(func() {
				if _, err := js.ReconcileQuotas(js.ctx); err != nil {
					js.logger.Error("quota reconciliation failed", zap.Error(err))
				}
			}),
			gocron.WithName("quota-audit"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("register quota audit job: %w", err)
		}
		js.jobs["quota-audit"] = job
	}

	if cfg.ExportCron != "" && js.exporter != nil {
		job, err := js.scheduler.NewJob(
			gocron.CronJob(cfg.ExportCron, false),
			gocron.NewTask(func() {
				if _, err := js.ExportAll(js.ctx); err != nil {
					js.logger.Error("scheduled export finished with errors", zap.Error(err))
				}
			}),
			gocron.WithName("tenant-exports"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("register export job: %w", err)
		}
		js.jobs["tenant-exports"] = job
	}
	return nil
}

// forEachTenant pages through every tenant
func (js *JobScheduler) forEachTenant(ctx context.Context, fn func(*models.Tenant)) error {
	for offset := 0; ; offset += tenantPageSize {
		tenants, err := js.tenantRepo.List(ctx, tenantPageSize, offset)
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}
		for _, t := range tenants {
			fn(t)
		}
		if len(tenants) < tenantPageSize {
			return nil
		}
	}
}

// ReconcileQuotas finds tenants holding more active notes than their plan
// allows and publishes the count. Such tenants only arise from concurrent
// creations in relaxed quota mode; nothing is deleted.
func (js *JobScheduler) ReconcileQuotas(ctx context.Context) (int, error) {
	counts, err := js.noteRepo.CountActiveByTenant(ctx)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}

	over := 0
	err = js.forEachTenant(ctx, func(t *models.Tenant) {
		count := counts[t.ID]
		limit := t.NotesLimit()
		if limit == nil || count <= *limit {
			return
		}
		over++
		js.logger.Warn("tenant over quota",
			zap.String("tenant_id", t.ID.String()),
			zap.String("slug", t.Slug),
			zap.Int("active_notes", count),
			zap.Int("limit", *limit))
	})
	if err != nil {
		return 0, err
	}

	metrics.TenantsOverQuota.Set(float64(over))
	js.logger.Info("quota reconciliation completed", zap.Int("over_quota", over))
	return over, nil
}

// ExportAll snapshots every tenant's notes, at most five at a time. One
// failing tenant does not stop the others.
func (js *JobScheduler) ExportAll(ctx context.Context) (int, error) {
	var tenants []*models.Tenant
	if err := js.forEachTenant(ctx, func(t *models.Tenant) { tenants = append(tenants, t) }); err != nil {
		return 0, err
	}

	semaphore := make(chan struct{}, 5)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	exported := 0

	for _, tenant := range tenants {
		wg.Add(1)
		go func(t *models.Tenant) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			_, err := js.exporter.ExportTenant(ctx, t, services.ExportTriggerScheduled)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				js.logger.Error("tenant export failed", zap.String("tenant_id", t.ID.String()), zap.Error(err))
				errs = append(errs, fmt.Errorf("tenant %s: %w", t.Slug, err))
				return
			}
			exported++
		}(tenant)
	}
	wg.Wait()

	js.logger.Info("scheduled export completed", zap.Int("tenants", len(tenants)), zap.Int("exported", exported))
	return exported, errors.Join(errs...)
}

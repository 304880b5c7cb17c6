package repositories

import (
	"context"
	"fmt"
	"time"

	"notesaas/internal/models"
	"notesaas/pkg/database"

	"github.com/google/uuid"
)

type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	// CreateWithinLimit counts the tenant's active notes and inserts the note in
	// one transaction serialised per tenant. It returns the count seen before the
	// insert, and ErrLimitReached without inserting when that count is >= limit.
	CreateWithinLimit(ctx context.Context, note *models.Note, limit int) (int, error)
	// GetByID returns the note even when soft-deleted.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	SoftDelete(ctx context.Context, tenantID, id, by uuid.UUID, at time.Time) error
	List(ctx context.Context, tenantID uuid.UUID, opts models.NoteListOptions) ([]*models.Note, error)
	// ListActive returns every active note of the tenant, newest first.
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Note, error)
	CountActive(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountActiveByCreator(ctx context.Context, tenantID, userID uuid.UUID) (int, error)
	// CountActiveByTenant returns active note counts keyed by tenant. Tenants
	// without active notes are absent.
	CountActiveByTenant(ctx context.Context) (map[uuid.UUID]int, error)
}

type noteRepo struct {
	db database.TxBeginner
}

func NewNoteRepo(db database.TxBeginner) NoteRepository {
	return &noteRepo{db: db}
}

const noteColumns = `id, tenant_id, title, content, tags, created_by, updated_by, is_active, created_at, updated_at`

const insertNote = `
	INSERT INTO notes (id, tenant_id, title, content, tags, created_by, updated_by, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9)
`

const countActive = `SELECT COUNT(*) FROM notes WHERE tenant_id = $1 AND is_active = TRUE`

func insertArgs(note *models.Note) []any {
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{note.ID, note.TenantID, note.Title, note.Content, tags, note.CreatedBy, note.UpdatedBy, note.CreatedAt, note.UpdatedAt}
}

func (r *noteRepo) Create(ctx context.Context, note *models.Note) error {
	_, err := r.db.Exec(ctx, insertNote, insertArgs(note)...)
	return err
}

func (r *noteRepo) CreateWithinLimit(ctx context.Context, note *models.Note, limit int) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	// held until commit/rollback
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, note.TenantID.String()); err != nil {
		return 0, fmt.Errorf("lock tenant: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, countActive, note.TenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	if count >= limit {
		return count, ErrLimitReached
	}

	if _, err := tx.Exec(ctx, insertNote, insertArgs(note)...); err != nil {
		return count, fmt.Errorf("insert note: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return count, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return count, nil
}

func (r *noteRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE tenant_id = $1 AND id = $2`
	return scanNote(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *noteRepo) Update(ctx context.Context, note *models.Note) error {
	query := `
		UPDATE notes
		SET title = $1, content = $2, tags = $3, updated_by = $4, updated_at = $5
		WHERE tenant_id = $6 AND id = $7 AND is_active = TRUE
	`
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	tag, err := r.db.Exec(ctx, query, note.Title, note.Content, tags, note.UpdatedBy, note.UpdatedAt, note.TenantID, note.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *noteRepo) SoftDelete(ctx context.Context, tenantID, id, by uuid.UUID, at time.Time) error {
	query := `
		UPDATE notes
		SET is_active = FALSE, updated_by = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4 AND is_active = TRUE
	`
	tag, err := r.db.Exec(ctx, query, by, at, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// sortColumns whitelists ORDER BY targets
var sortColumns = map[string]string{
	models.NoteSortCreatedAt: "created_at",
	models.NoteSortUpdatedAt: "updated_at",
	models.NoteSortTitle:     "title",
}

func (r *noteRepo) List(ctx context.Context, tenantID uuid.UUID, opts models.NoteListOptions) ([]*models.Note, error) {
	column, ok := sortColumns[opts.SortField]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if opts.Ascending {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM notes
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY %s %s, id %s
		LIMIT $2 OFFSET $3
	`, noteColumns, column, direction, direction)

	return r.queryNotes(ctx, query, tenantID, opts.Limit, opts.Offset)
}

func (r *noteRepo) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE tenant_id = $1 AND is_active = TRUE ORDER BY created_at DESC`
	return r.queryNotes(ctx, query, tenantID)
}

func (r *noteRepo) queryNotes(ctx context.Context, query string, args ...any) ([]*models.Note, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []*models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *noteRepo) CountActive(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, countActive, tenantID).Scan(&count)
	return count, err
}

func (r *noteRepo) CountActiveByCreator(ctx context.Context, tenantID, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notes WHERE tenant_id = $1 AND created_by = $2 AND is_active = TRUE`
	var count int
	err := r.db.QueryRow(ctx, query, tenantID, userID).Scan(&count)
	return count, err
}

func (r *noteRepo) CountActiveByTenant(ctx context.Context) (map[uuid.UUID]int, error) {
	query := `SELECT tenant_id, COUNT(*) FROM notes WHERE is_active = TRUE GROUP BY tenant_id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var tenantID uuid.UUID
		var count int
		if err := rows.Scan(&tenantID, &count); err != nil {
			return nil, err
		}
		counts[tenantID] = count
	}
	return counts, rows.Err()
}

func scanNote(row rowScanner) (*models.Note, error) {
	var n models.Note
	err := row.Scan(&n.ID, &n.TenantID, &n.Title, &n.Content, &n.Tags, &n.CreatedBy, &n.UpdatedBy, &n.IsActive, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

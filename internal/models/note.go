package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxNoteTitleLength   = 255
	MaxNoteContentLength = 10000
)

// Note is owned by exactly one tenant for its whole lifetime. Deletion only
// clears IsActive so the id stays resolvable.
type Note struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Tags      []string  `json:"tags" db:"tags"`
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	UpdatedBy uuid.UUID `json:"updated_by" db:"updated_by"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Note list sort fields
const (
	NoteSortCreatedAt = "created_at"
	NoteSortUpdatedAt = "updated_at"
	NoteSortTitle     = "title"
)

// NoteListOptions carries already validated paging and ordering
type NoteListOptions struct {
	SortField string
	Ascending bool
	Limit     int
	Offset    int
}

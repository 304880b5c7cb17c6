package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a tenant subscription tier
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// FreeNotesLimit is the number of active notes a free tenant may hold
const FreeNotesLimit = 3

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

type Tenant struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	Subscription Plan      `json:"subscription" db:"subscription"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NotesLimit returns the active note cap for the tenant's plan, nil meaning unlimited
func (t *Tenant) NotesLimit() *int {
	if t.Subscription == PlanPro {
		return nil
	}
	limit := FreeNotesLimit
	return &limit
}

// CanCreateNotes reports whether a tenant holding activeCount notes is below its cap
func (t *Tenant) CanCreateNotes(activeCount int) bool {
	limit := t.NotesLimit()
	return limit == nil || activeCount < *limit
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantSummary is the tenant view embedded in auth responses
type TenantSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Subscription Plan      `json:"subscription"`
}

func NewTenantSummary(t *Tenant) TenantSummary {
	return TenantSummary{ID: t.ID, Name: t.Name, Slug: t.Slug, Subscription: t.Subscription}
}

type UserProfile struct {
	ID     uuid.UUID     `json:"id"`
	Email  string        `json:"email"`
	Role   Role          `json:"role"`
	Tenant TenantSummary `json:"tenant"`
}

func NewUserProfile(u *User, t *Tenant) UserProfile {
	return UserProfile{ID: u.ID, Email: u.Email, Role: u.Role, Tenant: NewTenantSummary(t)}
}

type LoginResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserProfile `json:"user"`
}

// TenantDetails extends the summary with live quota usage
type TenantDetails struct {
	TenantSummary
	NotesLimit        *int `json:"notes_limit"`
	CurrentNotesCount int  `json:"current_notes_count"`
	CanCreateNotes    bool `json:"can_create_notes"`
}

type QuotaSummary struct {
	Subscription Plan `json:"subscription"`
	NotesLimit   *int `json:"notes_limit"`
	CurrentCount int  `json:"current_count"`
}

type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalNotes  int  `json:"total_notes"`
	HasMore     bool `json:"has_more"`
}

type NoteList struct {
	Notes      []*Note      `json:"notes"`
	Pagination Pagination   `json:"pagination"`
	Tenant     QuotaSummary `json:"tenant"`
}

type SubscriptionStatus struct {
	Plan              Plan `json:"plan"`
	NotesLimit        *int `json:"notes_limit"`
	CurrentNotesCount int  `json:"current_notes_count"`
	CanCreateNotes    bool `json:"can_create_notes"`
	CanUpgrade        bool `json:"can_upgrade"`
}

type NoteStats struct {
	TotalNotes     int  `json:"total_notes"`
	UserNotes      int  `json:"user_notes"`
	NotesLimit     *int `json:"notes_limit"`
	RemainingNotes *int `json:"remaining_notes"`
	Subscription   Plan `json:"subscription"`
	CanCreateNotes bool `json:"can_create_notes"`
}

// NoteExport describes a snapshot written to object storage
type NoteExport struct {
	ObjectName  string    `json:"object_name"`
	NoteCount   int       `json:"note_count"`
	DownloadURL string    `json:"download_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

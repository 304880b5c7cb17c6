package handlers

import (
	"notesaas/internal/models"

	"github.com/google/uuid"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type NoteResponse struct {
	Message string       `json:"message,omitempty"`
	Note    *models.Note `json:"note"`
}

type NoteDeletedResponse struct {
	Message string    `json:"message"`
	NoteID  uuid.UUID `json:"note_id"`
}

type TenantResponse struct {
	Tenant *models.TenantDetails `json:"tenant"`
}

type UpgradedTenant struct {
	models.TenantSummary
	NotesLimit *int `json:"notes_limit"`
}

type UpgradeResponse struct {
	Message string         `json:"message"`
	Tenant  UpgradedTenant `json:"tenant"`
}

type SubscriptionResponse struct {
	Subscription *models.SubscriptionStatus `json:"subscription"`
}

type ExportResponse struct {
	Message string             `json:"message"`
	Export  *models.NoteExport `json:"export"`
}

type UsersResponse struct {
	Users []*models.User `json:"users"`
}

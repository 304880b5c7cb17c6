package handlers

import (
	"net/http"

	"notesaas/internal/common"
	"notesaas/internal/middleware"
	"notesaas/internal/services"

	"github.com/labstack/echo/v4"
)

// NoteHandlers serves the tenant-scoped note routes
type NoteHandlers struct {
	noteService services.NoteService
}

func NewNoteHandlers(noteService services.NoteService) *NoteHandlers {
	return &NoteHandlers{noteService: noteService}
}

// CreateNote
// @Summary Create a note
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateNoteInput true "Note"
// @Success 201 {object} NoteResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 403 {object} common.ErrorResponse "quota exceeded"
// @Router /notes [post]
func (h *NoteHandlers) CreateNote(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	var req services.CreateNoteInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	note, err := h.noteService.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, NoteResponse{Message: "Note created successfully", Note: note})
}

// ListNotes
// @Summary List active notes of the caller's tenant
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, max 100"
// @Param sort query string false "created_at, updated_at or title"
// @Param order query string false "asc or desc"
// @Success 200 {object} models.NoteList
// @Router /notes [get]
func (h *NoteHandlers) ListNotes(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	var params services.ListNotesParams
	err = echo.QueryParamsBinder(c).
		Int("page", &params.Page).
		Int("limit", &params.Limit).
		String("sort", &params.Sort).
		String("order", &params.Order).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	list, err := h.noteService.List(c.Request().Context(), p, params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// NoteStats
// @Summary Note counts and remaining quota
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.NoteStats
// @Router /notes/stats/overview [get]
func (h *NoteHandlers) NoteStats(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}

	stats, err := h.noteService.Stats(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// GetNote
// @Summary Get a note
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 200 {object} NoteResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /notes/{id} [get]
func (h *NoteHandlers) GetNote(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return err
	}

	note, err := h.noteService.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NoteResponse{Note: note})
}

// UpdateNote applies a partial update; only the creator or an admin may edit.
// @Summary Update a note
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Param body body services.UpdateNoteInput true "Fields to change"
// @Success 200 {object} NoteResponse
// @Failure 403 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /notes/{id} [put]
func (h *NoteHandlers) UpdateNote(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return err
	}

	var req services.UpdateNoteInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	note, err := h.noteService.Update(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NoteResponse{Message: "Note updated successfully", Note: note})
}

// DeleteNote
// @Summary Soft-delete a note
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 200 {object} NoteDeletedResponse
// @Failure 403 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /notes/{id} [delete]
func (h *NoteHandlers) DeleteNote(c echo.Context) error {
	p, err := middleware.Principal(c)
	if err != nil {
		return err
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return err
	}

	if err := h.noteService.SoftDelete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NoteDeletedResponse{Message: "Note deleted successfully", NoteID: id})
}

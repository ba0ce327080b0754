package handler

import (
	"net/http"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/note/dto"
	noteService "chirpnet.io/chirp/internal/modules/note/service"
	"chirpnet.io/chirp/pkg/pagination"
	"chirpnet.io/chirp/pkg/response"
	"chirpnet.io/chirp/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NoteHandler struct {
	service noteService.NoteService
}

func NewNoteHandler(service noteService.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func (h *NoteHandler) SubmitNote(c *gin.Context) {
	authorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := idParam(c, "post_id")
	if !ok {
		return
	}

	var req dto.SubmitNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	note, err := h.service.SubmitNote(c.Request.Context(), authorID, postID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *NoteHandler) NotesForPost(c *gin.Context) {
	postID, ok := idParam(c, "post_id")
	if !ok {
		return
	}

	notes, err := h.service.NotesForPost(c.Request.Context(), response.OptionalUserID(c), postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notes})
}

func (h *NoteHandler) RateNote(c *gin.Context) {
	raterID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	noteID, ok := idParam(c, "note_id")
	if !ok {
		return
	}

	var req dto.RateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	note, err := h.service.RateNote(c.Request.Context(), raterID, noteID, req.Rating)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// ModerationQueue lists notes by status, defaulting to the proposed backlog.
func (h *NoteHandler) ModerationQueue(c *gin.Context) {
	status := c.DefaultQuery("status", model.NoteStatusProposed)
	p := pagination.FromContext(c)

	notes, err := h.service.NotesByStatus(c.Request.Context(), status, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notes, "page": p.Page, "limit": p.Limit})
}

func (h *NoteHandler) OverrideStatus(c *gin.Context) {
	noteID, ok := idParam(c, "note_id")
	if !ok {
		return
	}

	var req dto.NoteStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	note, err := h.service.OverrideStatus(c.Request.Context(), noteID, req.Status)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *NoteHandler) DeleteNote(c *gin.Context) {
	noteID, ok := idParam(c, "note_id")
	if !ok {
		return
	}

	if err := h.service.DeleteNote(c.Request.Context(), noteID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note deleted"})
}

func (h *NoteHandler) CreateStaffNote(c *gin.Context) {
	authorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := idParam(c, "post_id")
	if !ok {
		return
	}

	var req dto.StaffNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	note, err := h.service.CreateStaffNote(c.Request.Context(), authorID, postID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *NoteHandler) DeleteStaffNote(c *gin.Context) {
	noteID, ok := idParam(c, "note_id")
	if !ok {
		return
	}

	if err := h.service.DeleteStaffNote(c.Request.Context(), noteID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "staff note deleted"})
}

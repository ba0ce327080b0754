package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Content string             `json:"content" binding:"required,max=500"`
	QuoteID *uuid.UUID         `json:"quote_id"`
	Poll    *CreatePollRequest `json:"poll"`
}

type CreatePollRequest struct {
	Options       []string `json:"options" binding:"required,min=2,max=4,dive,required,max=100"`
	DurationHours int      `json:"duration_hours" binding:"omitempty,min=1,max=168"`
}

type ReplyRequest struct {
	Content string `json:"content" binding:"required,max=500"`
}

type EditPostRequest struct {
	Content string `json:"content" binding:"required,max=500"`
}

type EditHistoryResponse struct {
	PostID   uuid.UUID          `json:"post_id"`
	IsEdited bool               `json:"is_edited"`
	EditedAt *time.Time         `json:"edited_at,omitempty"`
	History  []EditHistoryEntry `json:"history"`
}

type EditHistoryEntry struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"edited_at"`
}

type ToggleResponse struct {
	Active bool `json:"active"`
}

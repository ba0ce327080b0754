package dto

import (
	"time"

	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
)

type StartConversationRequest struct {
	MemberIDs []uuid.UUID `json:"member_ids" binding:"required,min=1"`
	IsGroup   bool        `json:"is_group"`
	Name      string      `json:"name" binding:"omitempty,max=100"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type MessageResponse struct {
	ID             uuid.UUID             `json:"id"`
	ConversationID uuid.UUID             `json:"conversation_id"`
	Sender         pkgdto.AuthorResponse `json:"sender"`
	Content        string                `json:"content"`
	CreatedAt      time.Time             `json:"created_at"`
}

type ConversationResponse struct {
	ID          uuid.UUID               `json:"id"`
	IsGroup     bool                    `json:"is_group"`
	Name        string                  `json:"name,omitempty"`
	Members     []pkgdto.AuthorResponse `json:"members"`
	LastMessage *MessageResponse        `json:"last_message,omitempty"`
	UnreadCount int64                   `json:"unread_count"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

package handler

import (
	"net/http"

	"chirpnet.io/chirp/internal/modules/message/dto"
	messageService "chirpnet.io/chirp/internal/modules/message/service"
	"chirpnet.io/chirp/pkg/pagination"
	"chirpnet.io/chirp/pkg/response"
	"chirpnet.io/chirp/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	service messageService.MessageService
}

func NewMessageHandler(service messageService.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func conversationIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *MessageHandler) StartConversation(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	conv, err := h.service.StartConversation(c.Request.Context(), actorID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), actorID, conversationID, req.Content)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) Inbox(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	p := pagination.FromContext(c)
	convs, err := h.service.Inbox(c.Request.Context(), actorID, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": convs, "page": p.Page, "limit": p.Limit})
}

func (h *MessageHandler) Messages(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return
	}

	p := pagination.FromContext(c)
	messages, err := h.service.Messages(c.Request.Context(), actorID, conversationID, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": messages, "page": p.Page, "limit": p.Limit})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actorID, conversationID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "conversation marked read"})
}

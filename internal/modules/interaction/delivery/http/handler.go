package handler

import (
	"net/http"

	interactionService "chirpnet.io/chirp/internal/modules/interaction/service"
	"chirpnet.io/chirp/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InteractionHandler struct {
	service interactionService.InteractionService
}

func NewInteractionHandler(service interactionService.InteractionService) *InteractionHandler {
	return &InteractionHandler{service: service}
}

func (h *InteractionHandler) toggle(c *gin.Context, fn func(actor, post uuid.UUID) (bool, error), key string) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	postID, err := uuid.Parse(c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	on, err := fn(actorID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: on})
}

func (h *InteractionHandler) ToggleLike(c *gin.Context) {
	h.toggle(c, func(actor, post uuid.UUID) (bool, error) {
		return h.service.ToggleLike(c.Request.Context(), actor, post)
	}, "liked")
}

func (h *InteractionHandler) ToggleBookmark(c *gin.Context) {
	h.toggle(c, func(actor, post uuid.UUID) (bool, error) {
		return h.service.ToggleBookmark(c.Request.Context(), actor, post)
	}, "bookmarked")
}

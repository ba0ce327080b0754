package handler

import (
	"net/http"

	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/pagination"
	"chirpnet.io/chirp/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RelationshipHandler struct {
	service  relService.RelationshipService
	userRepo userRepo.UserRepository
}

func NewRelationshipHandler(service relService.RelationshipService, userRepository userRepo.UserRepository) *RelationshipHandler {
	return &RelationshipHandler{service: service, userRepo: userRepository}
}

// targetID resolves the :handle route param to a user id.
func (h *RelationshipHandler) targetID(c *gin.Context) (uuid.UUID, error) {
	user, err := h.userRepo.FindByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (h *RelationshipHandler) toggle(c *gin.Context, fn func(actor, target uuid.UUID) (bool, error), key string) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	targetID, err := h.targetID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	on, err := fn(actorID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{key: on})
}

func (h *RelationshipHandler) ToggleFollow(c *gin.Context) {
	h.toggle(c, func(actor, target uuid.UUID) (bool, error) {
		return h.service.ToggleFollow(c.Request.Context(), actor, target)
	}, "following")
}

func (h *RelationshipHandler) ToggleBlock(c *gin.Context) {
	h.toggle(c, func(actor, target uuid.UUID) (bool, error) {
		return h.service.ToggleBlock(c.Request.Context(), actor, target)
	}, "blocked")
}

func (h *RelationshipHandler) ToggleMute(c *gin.Context) {
	h.toggle(c, func(actor, target uuid.UUID) (bool, error) {
		return h.service.ToggleMute(c.Request.Context(), actor, target)
	}, "muted")
}

func (h *RelationshipHandler) GetFollowers(c *gin.Context) {
	userID, err := h.targetID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	p := pagination.FromContext(c)
	users, err := h.service.Followers(c.Request.Context(), userID, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *RelationshipHandler) GetFollowing(c *gin.Context) {
	userID, err := h.targetID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	p := pagination.FromContext(c)
	users, err := h.service.Following(c.Request.Context(), userID, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

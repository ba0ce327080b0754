package handler

import (
	"net/http"

	"chirpnet.io/chirp/internal/modules/post/dto"
	postService "chirpnet.io/chirp/internal/modules/post/service"
	"chirpnet.io/chirp/pkg/response"
	"chirpnet.io/chirp/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PostHandler struct {
	service postService.PostService
}

func NewPostHandler(service postService.PostService) *PostHandler {
	return &PostHandler{service: service}
}

func postIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	authorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), authorID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Reply(c *gin.Context) {
	authorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	parentID, ok := postIDParam(c)
	if !ok {
		return
	}

	var req dto.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	post, err := h.service.Reply(c.Request.Context(), authorID, parentID, req.Content)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	post, err := h.service.GetPost(c.Request.Context(), response.OptionalUserID(c), postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) EditPost(c *gin.Context) {
	authorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	var req dto.EditPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	post, err := h.service.EditPost(c.Request.Context(), authorID, postID, req.Content)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetEditHistory(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	history, err := h.service.GetEditHistory(c.Request.Context(), response.OptionalUserID(c), postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeletePost(c.Request.Context(), actorID, postID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (h *PostHandler) ToggleRepost(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	reposted, err := h.service.ToggleRepost(c.Request.Context(), actorID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reposted": reposted})
}

func (h *PostHandler) TogglePin(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	pinned, err := h.service.TogglePin(c.Request.Context(), actorID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pinned": pinned})
}

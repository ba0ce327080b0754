package handler

import (
	"net/http"

	feedService "chirpnet.io/chirp/internal/modules/feed/service"
	"chirpnet.io/chirp/pkg/pagination"
	"chirpnet.io/chirp/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FeedHandler struct {
	service feedService.FeedService
}

func NewFeedHandler(service feedService.FeedService) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) HomeTimeline(c *gin.Context) {
	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	p := pagination.FromContext(c)
	posts, err := h.service.HomeTimeline(c.Request.Context(), viewerID, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts, "page": p.Page, "limit": p.Limit})
}

func (h *FeedHandler) ProfileTimeline(c *gin.Context) {
	p := pagination.FromContext(c)
	posts, err := h.service.ProfileTimeline(c.Request.Context(), response.OptionalUserID(c), c.Param("handle"), p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts, "page": p.Page, "limit": p.Limit})
}

func (h *FeedHandler) Thread(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	p := pagination.FromContext(c)
	thread, err := h.service.Thread(c.Request.Context(), response.OptionalUserID(c), postID, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *FeedHandler) HashtagTimeline(c *gin.Context) {
	p := pagination.FromContext(c)
	posts, err := h.service.HashtagTimeline(c.Request.Context(), response.OptionalUserID(c), c.Param("tag"), p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts, "page": p.Page, "limit": p.Limit})
}

func (h *FeedHandler) Bookmarks(c *gin.Context) {
	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	p := pagination.FromContext(c)
	posts, err := h.service.Bookmarks(c.Request.Context(), viewerID, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts, "page": p.Page, "limit": p.Limit})
}

func (h *FeedHandler) Explore(c *gin.Context) {
	explore, err := h.service.Explore(c.Request.Context(), response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, explore)
}

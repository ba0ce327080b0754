package handler

import (
	"net/http"

	interactionService "chirpnet.io/chirp/internal/modules/interaction/service"
	searchService "chirpnet.io/chirp/internal/modules/search/service"
	"chirpnet.io/chirp/pkg/pagination"
	"chirpnet.io/chirp/pkg/response"
	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service    searchService.SearchService
	aggregator interactionService.Aggregator
}

func NewSearchHandler(service searchService.SearchService, aggregator interactionService.Aggregator) *SearchHandler {
	return &SearchHandler{service: service, aggregator: aggregator}
}

// Search serves /search?q=...&type=posts|users|hashtags.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query cannot be empty"})
		return
	}

	p := pagination.FromContext(c)
	ctx := c.Request.Context()

	switch c.DefaultQuery("type", "posts") {
	case "posts":
		posts, err := h.service.SearchPosts(ctx, query, p.Limit, p.Offset())
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		enriched, err := h.aggregator.Enrich(ctx, response.OptionalUserID(c), posts)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": enriched, "page": p.Page, "limit": p.Limit})
	case "users":
		users, err := h.service.SearchUsers(ctx, query, p.Limit, p.Offset())
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": users, "page": p.Page, "limit": p.Limit})
	case "hashtags":
		tags, err := h.service.SearchHashtags(ctx, query, p.Limit)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": tags})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be posts, users or hashtags"})
	}
}

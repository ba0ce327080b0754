package handler

import (
	"net/http"

	"chirpnet.io/chirp/internal/modules/poll/dto"
	pollService "chirpnet.io/chirp/internal/modules/poll/service"
	"chirpnet.io/chirp/pkg/response"
	"chirpnet.io/chirp/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PollHandler struct {
	service pollService.PollService
}

func NewPollHandler(service pollService.PollService) *PollHandler {
	return &PollHandler{service: service}
}

func (h *PollHandler) Vote(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	pollID, err := uuid.Parse(c.Param("poll_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.Vote(c.Request.Context(), actorID, pollID, *req.OptionIndex)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PollHandler) Results(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("poll_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	results, err := h.service.Results(c.Request.Context(), response.OptionalUserID(c), pollID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

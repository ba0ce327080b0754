package handler

import (
	"net/http"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/report/dto"
	reportService "chirpnet.io/chirp/internal/modules/report/service"
	"chirpnet.io/chirp/pkg/pagination"
	"chirpnet.io/chirp/pkg/response"
	"chirpnet.io/chirp/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReportHandler struct {
	service reportService.ReportService
}

func NewReportHandler(service reportService.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) SubmitReport(c *gin.Context) {
	reporterID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, err := uuid.Parse(c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post_id"})
		return
	}

	var req dto.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	report, err := h.service.SubmitReport(c.Request.Context(), reporterID, postID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ReportQueue lists reports by status, defaulting to the pending backlog.
func (h *ReportHandler) ReportQueue(c *gin.Context) {
	status := c.DefaultQuery("status", model.ReportStatusPending)
	p := pagination.FromContext(c)

	reports, err := h.service.ReportsByStatus(c.Request.Context(), status, p.Limit, p.Offset())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports, "page": p.Page, "limit": p.Limit})
}

func (h *ReportHandler) ResolveReport(c *gin.Context) {
	moderatorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	reportID, err := uuid.Parse(c.Param("report_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report_id"})
		return
	}

	var req dto.ReportActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	report, err := h.service.Resolve(c.Request.Context(), moderatorID, reportID, req.Action)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

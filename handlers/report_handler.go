package handlers

import (
	"net/http"

	"aicfo-backend/middleware"
	"aicfo-backend/models"
	"aicfo-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportHandler handles HTTP requests for the legacy report representation
type ReportHandler struct {
	reportRepo *repository.ReportRepository
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportRepo *repository.ReportRepository) *ReportHandler {
	return &ReportHandler{reportRepo: reportRepo}
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	reports, err := h.reportRepo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, "Failed to list reports", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport handles GET /api/reports/:id, returning the header with its
// parsed line items
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, ok := h.resolveOwned(c)
	if !ok {
		return
	}

	items, err := h.reportRepo.ListItems(c.Request.Context(), report.ID)
	if err != nil {
		internalError(c, "Failed to load report items", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "items": items})
}

// DeleteReport handles DELETE /api/reports/:id. Line items go first, then
// the header, in one transaction.
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	report, ok := h.resolveOwned(c)
	if !ok {
		return
	}

	if err := h.reportRepo.DeleteWithItems(c.Request.Context(), report.ID); err != nil {
		internalError(c, "Failed to delete report", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *ReportHandler) resolveOwned(c *gin.Context) (*models.FinancialReport, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid report ID format")
		return nil, false
	}

	report, err := h.reportRepo.GetByID(c.Request.Context(), id)
	if err != nil || report.UserID != user.ID {
		notFound(c, "Report not found")
		return nil, false
	}

	return report, true
}

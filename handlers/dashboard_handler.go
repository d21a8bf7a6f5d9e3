package handlers

import (
	"net/http"

	"aicfo-backend/middleware"
	"aicfo-backend/models"
	"aicfo-backend/repository"
	"aicfo-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DashboardHandler serves aggregated metric views
type DashboardHandler struct {
	companyRepo  *repository.CompanyRepository
	analysisRepo *repository.AnalysisRepository
	reportRepo   *repository.ReportRepository
	metricsSvc   *service.MetricsService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(companyRepo *repository.CompanyRepository, analysisRepo *repository.AnalysisRepository, reportRepo *repository.ReportRepository, metricsSvc *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{
		companyRepo:  companyRepo,
		analysisRepo: analysisRepo,
		reportRepo:   reportRepo,
		metricsSvc:   metricsSvc,
	}
}

// GetSummary handles GET /api/dashboard/summary. It returns document counts
// for the caller plus consolidated metrics for the caller's company when one
// is assigned.
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	analyses, err := h.analysisRepo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, "Failed to load analyses", err)
		return
	}

	reports, err := h.reportRepo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, "Failed to load reports", err)
		return
	}

	summary := gin.H{
		"analysis_count": len(analyses),
		"report_count":   len(reports),
	}

	if user.CompanyID != nil {
		result, err := h.metricsSvc.AggregateByBranch(c.Request.Context(), service.AggregateRequest{CompanyID: *user.CompanyID})
		if err != nil {
			internalError(c, "Failed to aggregate metrics", err)
			return
		}
		summary["consolidated"] = result.Consolidated
		summary["branch_count"] = result.Consolidated.BranchCount
	}

	c.JSON(http.StatusOK, summary)
}

// GetCompanyMetrics handles GET /api/companies/:id/metrics with optional
// branch_id and period query filters
func (h *DashboardHandler) GetCompanyMetrics(c *gin.Context) {
	companyID, ok := h.authorizeCompany(c)
	if !ok {
		return
	}

	req := service.AggregateRequest{CompanyID: companyID}

	if raw := c.Query("branch_id"); raw != "" {
		branchID, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid branch ID format")
			return
		}
		req.BranchID = &branchID
	}
	if period := c.Query("period"); period != "" {
		req.Period = &period
	}

	result, err := h.metricsSvc.AggregateByBranch(c.Request.Context(), req)
	if err != nil {
		internalError(c, "Failed to aggregate metrics", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *DashboardHandler) authorizeCompany(c *gin.Context) (uuid.UUID, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return uuid.Nil, false
	}

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid company ID format")
		return uuid.Nil, false
	}

	if !memberOf(user, companyID) {
		notFound(c, "Company not found")
		return uuid.Nil, false
	}

	if _, err := h.companyRepo.GetByID(c.Request.Context(), companyID); err != nil {
		notFound(c, "Company not found")
		return uuid.Nil, false
	}

	return companyID, true
}

func memberOf(user *models.User, companyID uuid.UUID) bool {
	if user.IsAdmin {
		return true
	}
	return user.CompanyID != nil && *user.CompanyID == companyID
}

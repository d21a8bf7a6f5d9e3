package handlers

import (
	"net/http"

	"aicfo-backend/repository"
	"aicfo-backend/service"

	"github.com/gin-gonic/gin"
)

// InsightHandler generates narrative commentary over a company's metrics
type InsightHandler struct {
	companyRepo *repository.CompanyRepository
	metricsSvc  *service.MetricsService
	insightSvc  *service.InsightService
	dashboard   *DashboardHandler
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(companyRepo *repository.CompanyRepository, metricsSvc *service.MetricsService, insightSvc *service.InsightService, dashboard *DashboardHandler) *InsightHandler {
	return &InsightHandler{
		companyRepo: companyRepo,
		metricsSvc:  metricsSvc,
		insightSvc:  insightSvc,
		dashboard:   dashboard,
	}
}

// GetInsights handles GET /api/companies/:id/insights. Metrics are
// aggregated first, then summarized into prose.
func (h *InsightHandler) GetInsights(c *gin.Context) {
	companyID, ok := h.dashboard.authorizeCompany(c)
	if !ok {
		return
	}

	company, err := h.companyRepo.GetByID(c.Request.Context(), companyID)
	if err != nil {
		notFound(c, "Company not found")
		return
	}

	result, err := h.metricsSvc.AggregateByBranch(c.Request.Context(), service.AggregateRequest{CompanyID: companyID})
	if err != nil {
		internalError(c, "Failed to aggregate metrics", err)
		return
	}

	insights, err := h.insightSvc.Generate(c.Request.Context(), company.Name, result)
	if err != nil {
		internalError(c, "Failed to generate insights", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"company_id": companyID,
		"insights":   insights.Insights,
		"fallback":   insights.Fallback,
		"metrics":    result.Consolidated,
	})
}

package handlers

import (
	"net/http"

	"aicfo-backend/logger"
	"aicfo-backend/middleware"
	"aicfo-backend/models"
	"aicfo-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyHandler handles HTTP requests for companies and branches
type CompanyHandler struct {
	companyRepo *repository.CompanyRepository
	branchRepo  *repository.BranchRepository
	userRepo    *repository.UserRepository
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companyRepo *repository.CompanyRepository, branchRepo *repository.BranchRepository, userRepo *repository.UserRepository) *CompanyHandler {
	return &CompanyHandler{
		companyRepo: companyRepo,
		branchRepo:  branchRepo,
		userRepo:    userRepo,
	}
}

type createCompanyRequest struct {
	Name        string  `json:"name" binding:"required"`
	Industry    *string `json:"industry"`
	Description *string `json:"description"`
}

// CreateCompany handles POST /api/companies. The creating user becomes the
// company's admin.
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	company := &models.Company{
		Name:        req.Name,
		Industry:    req.Industry,
		Description: req.Description,
	}
	if err := h.companyRepo.Create(c.Request.Context(), company); err != nil {
		internalError(c, "Failed to create company", err)
		return
	}

	if err := h.userRepo.SetCompany(c.Request.Context(), user.ID, company.ID, true); err != nil {
		logger.FromGin(c).Error("failed to assign company admin", zap.Error(err))
		internalError(c, "Failed to assign company", err)
		return
	}

	c.JSON(http.StatusCreated, company)
}

// ListCompanies handles GET /api/companies. Regular users see their own
// company; admins see everything.
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if user.IsAdmin {
		companies, err := h.companyRepo.List(c.Request.Context())
		if err != nil {
			internalError(c, "Failed to list companies", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"companies": companies})
		return
	}

	var companies []*models.Company
	if user.CompanyID != nil {
		company, err := h.companyRepo.GetByID(c.Request.Context(), *user.CompanyID)
		if err == nil {
			companies = append(companies, company)
		}
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

// GetCompany handles GET /api/companies/:id
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	user, companyID, ok := h.authorizeCompany(c)
	if !ok {
		return
	}
	_ = user

	company, err := h.companyRepo.GetByID(c.Request.Context(), companyID)
	if err != nil {
		notFound(c, "Company not found")
		return
	}

	c.JSON(http.StatusOK, company)
}

type branchRequest struct {
	Name     string  `json:"name" binding:"required"`
	Location *string `json:"location"`
}

// CreateBranch handles POST /api/companies/:id/branches
func (h *CompanyHandler) CreateBranch(c *gin.Context) {
	_, companyID, ok := h.authorizeCompany(c)
	if !ok {
		return
	}

	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	branch := &models.Branch{
		CompanyID: companyID,
		Name:      req.Name,
		Location:  req.Location,
	}
	if err := h.branchRepo.Create(c.Request.Context(), branch); err != nil {
		internalError(c, "Failed to create branch", err)
		return
	}

	c.JSON(http.StatusCreated, branch)
}

// ListBranches handles GET /api/companies/:id/branches. Soft-deleted
// branches are excluded.
func (h *CompanyHandler) ListBranches(c *gin.Context) {
	_, companyID, ok := h.authorizeCompany(c)
	if !ok {
		return
	}

	branches, err := h.branchRepo.ListActiveByCompany(c.Request.Context(), companyID)
	if err != nil {
		internalError(c, "Failed to list branches", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

// UpdateBranch handles PUT /api/branches/:id
func (h *CompanyHandler) UpdateBranch(c *gin.Context) {
	branch, ok := h.resolveBranch(c)
	if !ok {
		return
	}

	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	branch.Name = req.Name
	branch.Location = req.Location
	if err := h.branchRepo.Update(c.Request.Context(), branch); err != nil {
		internalError(c, "Failed to update branch", err)
		return
	}

	c.JSON(http.StatusOK, branch)
}

// DeleteBranch handles DELETE /api/branches/:id. Branches are soft-deleted
// so historical analyses keep resolving.
func (h *CompanyHandler) DeleteBranch(c *gin.Context) {
	branch, ok := h.resolveBranch(c)
	if !ok {
		return
	}

	if err := h.branchRepo.SoftDelete(c.Request.Context(), branch.ID); err != nil {
		internalError(c, "Failed to delete branch", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// authorizeCompany parses the :id param and checks the user may act on that
// company: membership first, admin override second.
func (h *CompanyHandler) authorizeCompany(c *gin.Context) (*models.User, uuid.UUID, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return nil, uuid.Nil, false
	}

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid company ID format")
		return nil, uuid.Nil, false
	}

	if !user.IsAdmin && (user.CompanyID == nil || *user.CompanyID != companyID) {
		notFound(c, "Company not found")
		return nil, uuid.Nil, false
	}

	return user, companyID, true
}

// resolveBranch loads the :id branch and checks it belongs to the user's
// company.
func (h *CompanyHandler) resolveBranch(c *gin.Context) (*models.Branch, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return nil, false
	}

	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid branch ID format")
		return nil, false
	}

	branch, err := h.branchRepo.GetByID(c.Request.Context(), branchID)
	if err != nil {
		notFound(c, "Branch not found")
		return nil, false
	}
	if !user.IsAdmin && (user.CompanyID == nil || *user.CompanyID != branch.CompanyID) {
		notFound(c, "Branch not found")
		return nil, false
	}

	return branch, true
}

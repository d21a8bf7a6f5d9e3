package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"aicfo-backend/analysis"
	"aicfo-backend/logger"
	"aicfo-backend/middleware"
	"aicfo-backend/models"
	"aicfo-backend/repository"
	"aicfo-backend/service"
	"aicfo-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisHandler handles HTTP requests for financial document uploads and
// their stored analyses
type AnalysisHandler struct {
	analysisRepo *repository.AnalysisRepository
	reportRepo   *repository.ReportRepository
	dupChecker   *service.DuplicateChecker
	storage      storage.Storage
	backend      *analysis.Client
	maxFileSize  int64
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisRepo *repository.AnalysisRepository, reportRepo *repository.ReportRepository, dupChecker *service.DuplicateChecker, fileStorage storage.Storage, backend *analysis.Client, maxFileSize int64) *AnalysisHandler {
	return &AnalysisHandler{
		analysisRepo: analysisRepo,
		reportRepo:   reportRepo,
		dupChecker:   dupChecker,
		storage:      fileStorage,
		backend:      backend,
		maxFileSize:  maxFileSize,
	}
}

// allowedExtensions are the supported financial document formats.
var allowedExtensions = map[string]bool{
	".csv":  true,
	".pdf":  true,
	".xls":  true,
	".xlsx": true,
}

// UploadAnalysis handles POST /api/analyses/upload. The original is kept in
// object storage; parsing is delegated to the analysis backend and the
// resulting payload persisted alongside the file identity.
func (h *AnalysisHandler) UploadAnalysis(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "File is required")
		return
	}

	if fileHeader.Size > h.maxFileSize {
		badRequest(c, "File too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		badRequest(c, "Unsupported file type. Allowed types: CSV, PDF, XLS, XLSX")
		return
	}

	// Re-uploads of an already-stored file answer 409 unless the client
	// explicitly overrides after the conflict was surfaced.
	if c.PostForm("allow_duplicate") != "true" {
		dup, err := h.dupChecker.Check(c.Request.Context(), user.ID, fileHeader.Filename, fileHeader.Size)
		if err != nil {
			internalError(c, "Failed to check for duplicates", err)
			return
		}
		if dup.IsDuplicate {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Duplicate file",
				"duplicate": dup,
			})
			return
		}
	}

	record := &models.FinancialAnalysis{
		UserID:   user.ID,
		FileName: fileHeader.Filename,
		FileType: strings.TrimPrefix(ext, "."),
		FileSize: fileHeader.Size,
	}

	if v := c.PostForm("company_id"); v != "" {
		companyID, err := uuid.Parse(v)
		if err != nil {
			badRequest(c, "Invalid company_id format")
			return
		}
		record.CompanyID = &companyID
	}
	if v := c.PostForm("branch_id"); v != "" {
		branchID, err := uuid.Parse(v)
		if err != nil {
			badRequest(c, "Invalid branch_id format")
			return
		}
		record.BranchID = &branchID
	}
	if v := c.PostForm("upload_group"); v != "" {
		record.UploadGroup = &v
	}
	if v := c.PostForm("period"); v != "" {
		record.Period = &v
	}

	file, err := fileHeader.Open()
	if err != nil {
		internalError(c, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	fileID := uuid.New()
	storagePath, err := h.storage.Upload(c.Request.Context(), fileID, fileHeader.Filename, file)
	if err != nil {
		internalError(c, "Failed to store file", err)
		return
	}
	record.StoragePath = storagePath

	// Re-open for the parse request; the storage upload consumed the reader.
	parseFile, err := fileHeader.Open()
	if err != nil {
		internalError(c, "Failed to open uploaded file", err)
		return
	}
	defer parseFile.Close()

	parsed, err := h.backend.ParseDocument(c.Request.Context(), fileHeader.Filename, parseFile)
	if err != nil {
		h.storage.Delete(c.Request.Context(), storagePath)
		if errors.Is(err, analysis.ErrBackendUnavailable) {
			internalError(c, "Analysis backend unavailable", err)
			return
		}
		internalError(c, "Failed to analyze document", err)
		return
	}
	record.Payload = parsed.Payload

	if err := h.analysisRepo.Create(c.Request.Context(), record); err != nil {
		// Try to clean up the stored original
		h.storage.Delete(c.Request.Context(), storagePath)
		internalError(c, "Failed to save analysis record", err)
		return
	}

	// Documents that parse into line items also get the report
	// representation; the analysis record stays canonical if this fails.
	if len(parsed.LineItems) > 0 {
		if err := h.createReport(c, user.ID, record, parsed.LineItems); err != nil {
			logger.FromGin(c).Warn("failed to save parsed report",
				zap.String("analysis_id", record.ID.String()),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusCreated, record)
}

func (h *AnalysisHandler) createReport(c *gin.Context, userID uuid.UUID, record *models.FinancialAnalysis, lineItems []analysis.LineItem) error {
	report := &models.FinancialReport{
		UserID:   userID,
		FileName: record.FileName,
		Period:   record.Period,
	}

	items := make([]*models.ParsedFinancialData, 0, len(lineItems))
	for _, item := range lineItems {
		period := item.Period
		if period == nil {
			period = record.Period
		}
		items = append(items, &models.ParsedFinancialData{
			AccountName: item.AccountName,
			Category:    item.Category,
			Amount:      item.Amount,
			EntryType:   models.EntryType(item.EntryType),
			Period:      period,
		})
	}

	return h.reportRepo.Create(c.Request.Context(), report, items)
}

// CheckDuplicate handles POST /api/analyses/check-duplicate
func (h *AnalysisHandler) CheckDuplicate(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req struct {
		FileName string `json:"file_name" binding:"required"`
		FileSize int64  `json:"file_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "file_name is required")
		return
	}

	result, err := h.dupChecker.Check(c.Request.Context(), user.ID, req.FileName, req.FileSize)
	if err != nil {
		internalError(c, "Failed to check for duplicates", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAnalyses handles GET /api/analyses
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	analyses, err := h.analysisRepo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, "Failed to list analyses", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

// GetAnalysis handles GET /api/analyses/:id
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	record, ok := h.resolveOwned(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteAnalysis handles DELETE /api/analyses/:id. The stored original is
// removed best-effort after the row.
func (h *AnalysisHandler) DeleteAnalysis(c *gin.Context) {
	record, ok := h.resolveOwned(c)
	if !ok {
		return
	}

	if err := h.analysisRepo.Delete(c.Request.Context(), record.ID); err != nil {
		internalError(c, "Failed to delete analysis", err)
		return
	}

	if record.StoragePath != "" {
		if err := h.storage.Delete(c.Request.Context(), record.StoragePath); err != nil {
			logger.FromGin(c).Warn("failed to delete stored original",
				zap.String("storage_path", record.StoragePath),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// resolveOwned loads the :id analysis and enforces user ownership; a
// not-owned record reads as not found.
func (h *AnalysisHandler) resolveOwned(c *gin.Context) (*models.FinancialAnalysis, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid analysis ID format")
		return nil, false
	}

	record, err := h.analysisRepo.GetByID(c.Request.Context(), id)
	if err != nil || record.UserID != user.ID {
		notFound(c, "Analysis not found")
		return nil, false
	}

	return record, true
}

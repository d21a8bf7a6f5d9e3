package handlers

import (
	"net/http"

	"aicfo-backend/analysis"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthHandler reports service liveness and dependency reachability
type HealthHandler struct {
	db      *pgxpool.Pool
	backend *analysis.Client
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *pgxpool.Pool, backend *analysis.Client) *HealthHandler {
	return &HealthHandler{db: db, backend: backend}
}

// Check handles GET /health. Dependency failures degrade the status but the
// endpoint still answers 200 so load balancers keep the process in rotation
// while the dependency recovers.
func (h *HealthHandler) Check(c *gin.Context) {
	status := "healthy"

	dbStatus := "ok"
	if err := h.db.Ping(c.Request.Context()); err != nil {
		dbStatus = "unreachable"
		status = "degraded"
	}

	backendStatus := "ok"
	if err := h.backend.CheckHealth(c.Request.Context()); err != nil {
		backendStatus = "unreachable"
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": dbStatus,
		"backend":  backendStatus,
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the canonical error body. Details is only populated on
// unexpected failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
}

func internalError(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg, Details: err.Error()})
}

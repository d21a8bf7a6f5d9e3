package handlers

import (
	"net/http"

	"aicfo-backend/middleware"
	"aicfo-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler relays chat messages to the analysis backend
type ChatHandler struct {
	chatSvc *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatSvc *service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

type chatRequest struct {
	Message    string `json:"message" binding:"required"`
	AnalysisID string `json:"analysis_id"`
}

// SendMessage handles POST /api/chat
func (h *ChatHandler) SendMessage(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Message is required")
		return
	}

	var analysisID *uuid.UUID
	if req.AnalysisID != "" {
		id, err := uuid.Parse(req.AnalysisID)
		if err != nil {
			badRequest(c, "Invalid analysis ID format")
			return
		}
		analysisID = &id
	}

	result, err := h.chatSvc.Send(c.Request.Context(), req.Message, analysisID)
	if err != nil {
		internalError(c, "Failed to process chat message", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

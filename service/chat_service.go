package service

import (
	"context"
	"errors"

	"aicfo-backend/analysis"
	"aicfo-backend/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message returned when the analysis backend cannot be reached. The chat
// surface degrades gracefully instead of surfacing the outage.
const chatFallbackReply = "I'm having trouble reaching the analysis engine right now. " +
	"Your documents and dashboards are unaffected; please try your question again in a moment."

// ChatRelay is the outbound chat surface of the analysis backend
type ChatRelay interface {
	Chat(ctx context.Context, req analysis.ChatRequest) (*analysis.ChatResponse, error)
}

// ChatService relays chat messages to the analysis backend
type ChatService struct {
	backend ChatRelay
}

// NewChatService creates a new chat service
func NewChatService(backend ChatRelay) *ChatService {
	return &ChatService{backend: backend}
}

// ChatResult is a chat reply plus whether it is fallback content
type ChatResult struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
}

// Send relays the message and returns the backend's reply, or fallback
// content when the backend is unavailable.
func (s *ChatService) Send(ctx context.Context, message string, analysisID *uuid.UUID) (*ChatResult, error) {
	if s.backend == nil {
		return nil, errors.New("chat relay not set")
	}

	resp, err := s.backend.Chat(ctx, analysis.ChatRequest{Message: message, AnalysisID: analysisID})
	if err != nil {
		logger.FromContext(ctx).Warn("chat relay failed, serving fallback", zap.Error(err))
		return &ChatResult{Reply: chatFallbackReply, Fallback: true}, nil
	}

	return &ChatResult{Reply: resp.Reply}, nil
}

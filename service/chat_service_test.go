package service

import (
	"context"
	"errors"
	"testing"

	"aicfo-backend/analysis"
)

type stubChatRelay struct {
	reply string
	err   error
	got   analysis.ChatRequest
}

func (s *stubChatRelay) Chat(ctx context.Context, req analysis.ChatRequest) (*analysis.ChatResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &analysis.ChatResponse{Reply: s.reply}, nil
}

func TestChatServiceSend(t *testing.T) {
	relay := &stubChatRelay{reply: "Margins improved this quarter."}
	svc := NewChatService(relay)

	result, err := svc.Send(context.Background(), "how are margins?", nil)
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if result.Fallback {
		t.Error("Fallback = true, want false")
	}
	if result.Reply != "Margins improved this quarter." {
		t.Errorf("Reply = %q", result.Reply)
	}
	if relay.got.Message != "how are margins?" {
		t.Errorf("relayed message = %q", relay.got.Message)
	}
}

func TestChatServiceSendFallback(t *testing.T) {
	relay := &stubChatRelay{err: errors.New("connection refused")}
	svc := NewChatService(relay)

	result, err := svc.Send(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("backend failure must not surface as an error, got: %v", err)
	}
	if !result.Fallback {
		t.Error("Fallback = false, want true")
	}
	if result.Reply == "" {
		t.Error("expected a fallback reply")
	}
}
